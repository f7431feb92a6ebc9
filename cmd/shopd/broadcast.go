package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

func newBroadcastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Shop-wide broadcast channel commands",
		Long:  "Reads or changes the broadcast banner on a running Shopflow server.",
	}

	cmd.AddCommand(newBroadcastGetCmd())
	cmd.AddCommand(newBroadcastSetCmd())
	cmd.AddCommand(newBroadcastClearCmd())
	return cmd
}

func broadcastFlags(cmd *cobra.Command, server, identity *string) {
	cmd.Flags().StringVar(server, "server", "http://localhost:8080", "base URL of the running server")
	cmd.Flags().StringVar(identity, "identity", "", "identity for role resolution")
}

func newBroadcastGetCmd() *cobra.Command {
	var server, identity string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the active broadcast",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := broadcastRequest(http.MethodGet, server, identity, nil)
			if err != nil {
				return err
			}
			var resp struct {
				Message *string `json:"message"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			if resp.Message == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No active broadcast.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), *resp.Message)
			return nil
		},
	}

	broadcastFlags(cmd, &server, &identity)
	return cmd
}

func newBroadcastSetCmd() *cobra.Command {
	var server, identity string

	cmd := &cobra.Command{
		Use:   "set <message>",
		Short: "Publish a broadcast to every connected client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(map[string]string{"message": args[0]})
			if _, err := broadcastRequest(http.MethodPost, server, identity, payload); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Broadcast published.")
			return nil
		},
	}

	broadcastFlags(cmd, &server, &identity)
	return cmd
}

func newBroadcastClearCmd() *cobra.Command {
	var server, identity string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Retract the active broadcast",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := broadcastRequest(http.MethodDelete, server, identity, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Broadcast cleared.")
			return nil
		},
	}

	broadcastFlags(cmd, &server, &identity)
	return cmd
}

func broadcastRequest(method, server, identity string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, server+"/api/broadcast", body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if identity != "" {
		req.Header.Set("X-Shop-Identity", identity)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reach server %s: %w", server, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server replied %s: %s", resp.Status, bytes.TrimSpace(out))
	}
	return out, nil
}
