package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Query server status or a specific run",
	Long: `Queries the run server for status information.
If no run-id is provided, lists all runs.
If run-id is provided, shows detailed status for that run.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listRuns(fmt.Sprintf("%s/api/v1/runs", serverURL))
	}
	runID := args[0]
	return getRunStatus(fmt.Sprintf("%s/api/v1/runs/%s/status", serverURL, runID), runID)
}

func listRuns(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var runs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("Found %d run(s):\n\n", len(runs))
	for _, run := range runs {
		fmt.Printf("Run ID: %s\n", run["id"])
		fmt.Printf("  State: %s\n", run["state"])
		if req, ok := run["request"].(map[string]interface{}); ok {
			fmt.Printf("  Calculation: %s\n", req["calculation"])
		}
		if run["iterations"] != nil {
			fmt.Printf("  Iterations: %v\n", run["iterations"])
		}
		if run["bestCost"] != nil {
			fmt.Printf("  Best Cost: %v\n", run["bestCost"])
		}
		fmt.Println()
	}

	return nil
}

func getRunStatus(url, runID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("run not found: %s", runID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Run: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	if req, ok := status["request"].(map[string]interface{}); ok {
		fmt.Println("Request:")
		fmt.Printf("  Calculation: %s\n", req["calculation"])
		fmt.Printf("  Max Iterations: %v\n", req["maxIterations"])
		if req["targetCost"] != nil {
			fmt.Printf("  Target Cost: %v\n", req["targetCost"])
		}
		if req["timeBudget"] != nil && req["timeBudget"] != "" {
			fmt.Printf("  Time Budget: %v\n", req["timeBudget"])
		}
		fmt.Println()
	}

	fmt.Println("Progress:")
	fmt.Printf("  Iterations: %v\n", status["iterations"])
	if status["cost"] != nil {
		fmt.Printf("  Cost: %v\n", status["cost"])
	}
	if status["bestCost"] != nil {
		fmt.Printf("  Best Cost: %v\n", status["bestCost"])
	}
	if status["reason"] != nil && status["reason"] != "" {
		fmt.Printf("  Reason: %s\n", status["reason"])
	}

	if status["elapsed"] != nil {
		elapsed := time.Duration(status["elapsed"].(float64) * float64(time.Second))
		fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	}

	if status["ips"] != nil && status["ips"].(float64) > 0 {
		fmt.Printf("  Throughput: %.0f iterations/sec\n", status["ips"])
	}

	if status["error"] != nil && status["error"].(string) != "" {
		fmt.Printf("\nError: %s\n", status["error"])
	}

	return nil
}
