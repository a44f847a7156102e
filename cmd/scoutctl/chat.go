package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	var sessionID string
	sendCmd := &cobra.Command{
		Use:   "send TEXT...",
		Short: "Send a chat message and print the conversation snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			path := "/api/send"
			if sessionID != "" {
				path = fmt.Sprintf("/api/sessions/%s/send", sessionID)
			}
			data, err := doPostJSON(path, map[string]string{"text": text})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	sendCmd.Flags().StringVarP(&sessionID, "session", "s", "", "Target session (defaults to the active one)")
	rootCmd.AddCommand(sendCmd)

	var amount float64
	payCmd := &cobra.Command{
		Use:   "pay",
		Short: "Confirm the demo payment and unlock booking links",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{}
			if amount > 0 {
				payload["amount"] = amount
			}
			data, err := doPostJSON("/api/payments/confirm", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	payCmd.Flags().Float64Var(&amount, "amount", 0, "Payment amount (defaults to the service price)")
	rootCmd.AddCommand(payCmd)

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet("/api/profile")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(profileCmd)

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet("/api/health")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(healthCmd)
}
