package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/till/internal/config"
	"github.com/tillpoint/till/pkg/pos"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "health":
		cmdHealth()
	case "status":
		cmdStatus()
	case "sync":
		cmdSync()
	case "submit":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: tillctl submit <sale.json>")
			os.Exit(1)
		}
		cmdSubmit(os.Args[2])
	case "tickets":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: tillctl tickets <list|show>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdTicketsList(os.Args[3:])
		case "show":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: tillctl tickets show <id>")
				os.Exit(1)
			}
			cmdTicketsShow(os.Args[3])
		default:
			fmt.Fprintf(os.Stderr, "unknown tickets subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "receipt":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: tillctl receipt <ticket-id>")
			os.Exit(1)
		}
		cmdReceipt(os.Args[2])
	case "logs":
		cmdLogs(os.Args[2:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: tillctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func cmdHealth() {
	body, err := apiGet("/api/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdStatus() {
	body, err := apiGet("/api/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var snap struct {
		Counts  pos.QueueCounts `json:"counts"`
		Online  bool            `json:"online"`
		Syncing bool            `json:"syncing"`
	}
	if err := json.Unmarshal(body, &snap); err != nil {
		fmt.Println(string(body))
		return
	}

	state := "OFFLINE"
	if snap.Online {
		state = "online"
	}
	fmt.Printf("network:  %s\n", state)
	fmt.Printf("syncing:  %v\n", snap.Syncing)
	fmt.Printf("pending:  %d\n", snap.Counts.Pending)
	fmt.Printf("errors:   %d\n", snap.Counts.Error)
	fmt.Printf("synced:   %d\n", snap.Counts.Synced)
}

func cmdSync() {
	body, err := apiPost("/api/sync", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var rep struct {
		Attempted int  `json:"attempted"`
		Synced    int  `json:"synced"`
		Failed    int  `json:"failed"`
		Halted    bool `json:"halted"`
	}
	if err := json.Unmarshal(body, &rep); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Printf("attempted %d, synced %d, failed %d\n", rep.Attempted, rep.Synced, rep.Failed)
	if rep.Halted {
		fmt.Println("drain halted early: network failure")
	}
}

func cmdSubmit(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var sale pos.Sale
	if err := json.Unmarshal(data, &sale); err != nil {
		fmt.Fprintf(os.Stderr, "error: parse %s: %v\n", path, err)
		os.Exit(1)
	}
	if sale.Reference == "" {
		sale.Reference = uuid.NewString()
	}

	payload, _ := json.Marshal(sale)
	body, err := apiPost("/api/sales", payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var resp struct {
		pos.SubmitResult
		Receipt string `json:"receipt"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		fmt.Println(string(body))
		return
	}
	if resp.Confirmed() {
		fmt.Printf("confirmed: invoice #%d\n", resp.Invoice.InvoiceNo)
	} else {
		fmt.Printf("queued: ticket %s\n", resp.TicketID)
	}
	fmt.Println()
	fmt.Println(resp.Receipt)
}

func cmdTicketsList(args []string) {
	fs := flag.NewFlagSet("tickets list", flag.ExitOnError)
	status := fs.String("status", "", "Filter by status (pending|synced|error)")
	fs.Parse(args)

	query := ""
	if *status != "" {
		query = "?status=" + *status
	}

	body, err := apiGet("/api/tickets" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var tickets []pos.Ticket
	json.Unmarshal(body, &tickets)
	for _, t := range tickets {
		note := ""
		switch {
		case t.Status == pos.TicketSynced:
			note = fmt.Sprintf("invoice #%d", t.InvoiceNo)
		case t.LastError != "":
			note = t.LastError
		}
		fmt.Printf("%-28s %-8s %s\n", t.TicketID, t.Status, note)
	}
}

func cmdTicketsShow(id string) {
	body, err := apiGet("/api/tickets/" + id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdReceipt(id string) {
	body, err := apiGet("/api/tickets/" + id + "/receipt")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "", "Minimum level (debug|info|warn|error)")
	limit := fs.Int("limit", 50, "Max entries")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *level != "" {
		query += "&level=" + *level
	}

	body, err := apiGet("/api/logs" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var entries []struct {
		Time    time.Time `json:"time"`
		Level   string    `json:"level"`
		Message string    `json:"message"`
	}
	json.Unmarshal(body, &entries)
	for _, e := range entries {
		fmt.Printf("%s %-5s %s\n", e.Time.Format("15:04:05"), e.Level, e.Message)
	}
}

func cmdConfigValidate(path string) {
	_, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func apiGet(path string) ([]byte, error) {
	return apiDo("GET", path, nil)
}

func apiPost(path string, body []byte) ([]byte, error) {
	return apiDo("POST", path, body)
}

func apiDo(method, path string, body []byte) ([]byte, error) {
	base := envOr("TILL_API_URL", "http://localhost:8343")
	url := base + path

	var rdr io.Reader
	if body != nil {
		rdr = strings.NewReader(string(body))
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := os.Getenv("TILL_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("tillctl - till terminal CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  health               Check daemon health")
	fmt.Println("  status               Show network, sync and queue status")
	fmt.Println("  submit <sale.json>   Submit a sale from a JSON file")
	fmt.Println("  sync                 Drain the offline queue now")
	fmt.Println("  tickets list         List tickets (--status)")
	fmt.Println("  tickets show <id>    Show ticket details")
	fmt.Println("  receipt <id>         Reprint the receipt for a ticket")
	fmt.Println("  logs                 Show recent daemon logs (--level, --limit)")
	fmt.Println("  config validate <p>  Validate config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  TILL_API_URL  Daemon URL (default: http://localhost:8343)")
	fmt.Println("  TILL_API_KEY  API key for authentication")
}
