package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
	"github.com/shelfmark/library-api/internal/core/service"
	"github.com/shelfmark/library-api/pkg/logger"
)

func newCreateAdminCmd(a *app) *cobra.Command {
	var username, email string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an Admin account",
		Long:  "Create an Admin account. The password is read from the terminal without echo, or from the first line of stdin when it is not a terminal.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd.ErrOrStderr(), cmd.InOrStdin())
			if err != nil {
				return err
			}

			be, err := openBackend(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer be.Close()

			users := service.NewUserService(service.NewUserRepository(be.store), logger.Component("users"))
			u, err := users.CreateUser(cmd.Context(), ports.CreateUserInput{
				Username: username,
				Password: password,
				Email:    email,
				Role:     domain.RoleAdmin,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %s)\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// readPassword reads without echo from a terminal, or a single line from in.
func readPassword(prompt io.Writer, in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}
