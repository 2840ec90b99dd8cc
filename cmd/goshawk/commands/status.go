package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/internal/cli/health"
	"github.com/goshawk-nvr/goshawk/internal/cli/output"
	"github.com/goshawk-nvr/goshawk/internal/cli/timeutil"
)

var statusPidFile string
var statusAPIPort int
var statusOutput string

// probeTimeout bounds each health request so a wedged server cannot hang
// the status command.
const probeTimeout = 2 * time.Second

// ServerStatus describes the current state of the Goshawk server.
type ServerStatus struct {
	Running     bool   `json:"running" yaml:"running"`
	PID         int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Healthy     bool   `json:"healthy" yaml:"healthy"`
	Ready       bool   `json:"ready" yaml:"ready"`
	CurrentOpen uint32 `json:"open_id,omitempty" yaml:"open_id,omitempty"`
	StartedAt   string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime      string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Message     string `json:"message" yaml:"message"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Goshawk server status",
	Long: `Show the status of the Goshawk server.

Checks the PID file for a running process, then probes the HTTP API health
endpoints. Readiness reports the active database open once the archive has
been opened.

Examples:
  # Check server status
  goshawk status

  # Check a server listening on a non-default API port
  goshawk status --api-port 9090

  # Machine-readable output
  goshawk status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/goshawk/goshawk.pid)")
	statusCmd.Flags().IntVar(&statusAPIPort, "api-port", 8080, "API server port to probe")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format: table, json, or yaml")
}

func runStatus(cmd *cobra.Command, args []string) error {
	mode, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	st := checkServerStatus(resolvePidFile(statusPidFile), statusAPIPort)

	switch mode {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, st)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, st)
	default:
		printStatusTable(st)
		return nil
	}
}

func checkServerStatus(pidPath string, apiPort int) ServerStatus {
	st := ServerStatus{}

	pid, err := parsePidFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			st.Message = "Server is not running"
		} else {
			st.Message = fmt.Sprintf("Invalid PID file at %s", pidPath)
		}
		return st
	}

	if _, alive := processAlive(pid); !alive {
		st.Message = "Server is not running (stale PID file)"
		return st
	}

	st.Running = true
	st.PID = pid

	client := &http.Client{Timeout: probeTimeout}

	live, err := probeHealth(client, fmt.Sprintf("http://localhost:%d/health", apiPort))
	if err != nil {
		st.Message = "Server is running but the API is not responding"
		return st
	}
	st.Healthy = live.Healthy()
	st.StartedAt = timeutil.FormatTime(live.Data.StartedAt)
	st.Uptime = timeutil.FormatUptime(live.Data.Uptime)

	ready, err := probeHealth(client, fmt.Sprintf("http://localhost:%d/health/ready", apiPort))
	if err == nil && ready.Healthy() {
		st.Ready = true
		st.CurrentOpen = ready.Data.OpenID
	}

	switch {
	case st.Healthy && st.Ready:
		st.Message = "Server is running and healthy"
	case st.Healthy:
		st.Message = "Server is running but the archive is not ready"
	default:
		st.Message = "Server is running but unhealthy"
	}
	return st
}

func probeHealth(client *http.Client, url string) (*health.Response, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed health.Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &parsed, nil
}

func printStatusTable(st ServerStatus) {
	fmt.Println("Goshawk Server Status")
	fmt.Println("─────────────────────")

	if st.Running {
		if st.Healthy {
			fmt.Printf("Status:      \033[32m● Running\033[0m\n")
		} else {
			fmt.Printf("Status:      \033[33m● Running (unhealthy)\033[0m\n")
		}
		fmt.Printf("PID:         %d\n", st.PID)
		if st.StartedAt != "" {
			fmt.Printf("Started:     %s\n", st.StartedAt)
		}
		if st.Uptime != "" {
			fmt.Printf("Uptime:      %s\n", st.Uptime)
		}
		if st.Ready {
			fmt.Printf("Open ID:     %d\n", st.CurrentOpen)
		}
	} else {
		fmt.Printf("Status:      \033[31m○ Stopped\033[0m\n")
	}

	fmt.Printf("Message:     %s\n", st.Message)
}
