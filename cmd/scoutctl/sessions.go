package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	sessionsCmd := &cobra.Command{Use: "sessions", Short: "Chat session operations"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet("/api/sessions")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	sessionsCmd.AddCommand(listCmd)

	var createName string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{}
			if createName != "" {
				payload["name"] = createName
			}
			data, err := doPostJSON("/api/sessions", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	createCmd.Flags().StringVarP(&createName, "name", "n", "", "Session name (defaults to New Chat)")
	sessionsCmd.AddCommand(createCmd)

	var renameName string
	renameCmd := &cobra.Command{
		Use:   "rename SESSION_ID",
		Short: "Rename a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if renameName == "" {
				return fmt.Errorf("--name required")
			}
			data, err := doPatchJSON("/api/sessions/"+args[0], map[string]string{"name": renameName})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	renameCmd.Flags().StringVarP(&renameName, "name", "n", "", "New session name (required)")
	_ = renameCmd.MarkFlagRequired("name")
	sessionsCmd.AddCommand(renameCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete SESSION_ID",
		Short: "Delete a session, its messages and retreats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := doDelete("/api/sessions/" + args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, "deleted")
			return nil
		},
	}
	sessionsCmd.AddCommand(deleteCmd)

	messagesCmd := &cobra.Command{
		Use:   "messages SESSION_ID",
		Short: "Show a session's persisted transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("/api/sessions/%s/messages", args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	sessionsCmd.AddCommand(messagesCmd)

	retreatsCmd := &cobra.Command{
		Use:   "retreats SESSION_ID",
		Short: "Show a session's retreats (booking links require premium)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("/api/sessions/%s/retreats", args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	sessionsCmd.AddCommand(retreatsCmd)

	rootCmd.AddCommand(sessionsCmd)
}
