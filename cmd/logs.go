package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var logsFollow bool
var logsLines int
var logsRepo string

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent daemon logs, or a repo's work-log history with --repo",
	RunE: func(cmd *cobra.Command, args []string) error {
		if logsRepo != "" {
			return showWorkLog(cmd.Context(), logsRepo)
		}
		return showDaemonLog()
	},
}

// showDaemonLog tails the newest {home}/logs/daemon.*.log file.
func showDaemonLog() error {
	_, home, err := loadConfig()
	if err != nil {
		return err
	}

	logDir := filepath.Join(home, "logs")
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return userError("no logs found under %s: %v", logDir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return userError("no log files found under %s", logDir)
	}
	sort.Strings(names)
	latest := filepath.Join(logDir, names[len(names)-1])

	if err := printTail(latest, logsLines); err != nil {
		return err
	}

	if !logsFollow {
		return nil
	}
	return followFile(latest)
}

func printTail(path string, n int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	for _, l := range lines {
		fmt.Println(l)
	}
	return scanner.Err()
}

// followFile polls the file for appended content, a plain substitute for
// `tail -f` with no extra dependency.
func followFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			fmt.Print(line)
		}
		if err != nil {
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// showWorkLog prints the most recent agent-invocation audit records for a
// repository from the durable store's work_log table.
func showWorkLog(ctx context.Context, fullName string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	st, closeFn, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	reqCtx, cancel := context.WithTimeout(ctx, ctxTimeout)
	defer cancel()

	repo, err := st.RepoByFullName(reqCtx, fullName)
	if err != nil {
		return userError("%v", err)
	}

	entries, err := st.RecentWorkLog(reqCtx, repo.ID, logsLines)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no work log entries")
		return nil
	}
	for _, e := range entries {
		status := "ok"
		if e.ExitCode != 0 {
			status = fmt.Sprintf("exit %d", e.ExitCode)
		}
		fmt.Printf("[%s] %s %s %s (%s, %dms)\n", e.StartedAt, e.Kind, e.WorkID, e.Command, status, e.DurationMS)
	}
	return nil
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow the daemon log as it grows")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "number of lines/entries to show")
	logsCmd.Flags().StringVar(&logsRepo, "repo", "", "show the work log for a specific registered repo (full_name)")
}
