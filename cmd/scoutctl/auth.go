package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	authCmd := &cobra.Command{Use: "auth", Short: "Account operations"}

	var email, password, fullName string
	signupCmd := &cobra.Command{
		Use:   "signup",
		Short: "Register an account and print the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password required")
			}
			payload := map[string]interface{}{"email": email, "password": password}
			if fullName != "" {
				payload["fullName"] = fullName
			}
			data, err := doPostJSON("/api/auth/signup", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	signupCmd.Flags().StringVarP(&email, "email", "e", "", "Email (required)")
	signupCmd.Flags().StringVarP(&password, "password", "p", "", "Password (required)")
	signupCmd.Flags().StringVarP(&fullName, "name", "n", "", "Full name")
	authCmd.AddCommand(signupCmd)

	var inEmail, inPassword string
	signinCmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and print the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inEmail == "" || inPassword == "" {
				return fmt.Errorf("--email and --password required")
			}
			data, err := doPostJSON("/api/auth/signin", map[string]string{
				"email": inEmail, "password": inPassword,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	signinCmd.Flags().StringVarP(&inEmail, "email", "e", "", "Email (required)")
	signinCmd.Flags().StringVarP(&inPassword, "password", "p", "", "Password (required)")
	authCmd.AddCommand(signinCmd)

	signoutCmd := &cobra.Command{
		Use:   "signout",
		Short: "Drop the server-side conversation state",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doPostJSON("/api/auth/signout", nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	authCmd.AddCommand(signoutCmd)

	rootCmd.AddCommand(authCmd)
}
