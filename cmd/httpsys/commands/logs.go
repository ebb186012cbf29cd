package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/marmos91/httpsys/pkg/config"
)

var (
	logsFollow bool
	logsLines  int
	logsSince  string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Tail listener logs",
	Long: `Display and optionally follow the httpsys log file.

The log file is taken from 'logging.output' in the configuration. Listeners
logging to stdout or stderr have no file to read.

Examples:
  # Show last 100 lines (default)
  httpsys logs

  # Follow logs in real-time
  httpsys logs -f

  # Show entries since a point in time
  httpsys logs --since "2026-01-15T10:00:00Z"`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since timestamp (RFC3339 format)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logFile := cfg.Logging.Output
	switch strings.ToLower(logFile) {
	case "stdout", "stderr":
		return fmt.Errorf("listener is configured to log to %s, not a file\nSet 'logging.output' to a file path to use this command", logFile)
	}
	if _, err := os.Stat(logFile); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("log file not found: %s", logFile)
	}

	var since time.Time
	if logsSince != "" {
		if since, err = time.Parse(time.RFC3339, logsSince); err != nil {
			return fmt.Errorf("invalid --since format (use RFC3339): %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if err := showLogs(out, logFile, logsLines, since); err != nil {
		return err
	}
	if !logsFollow {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Following %s (Ctrl+C to stop)...\n", logFile)
	return followLogs(ctx, out, logFile)
}

// showLogs writes the last n lines of logFile that are not older than
// since. n <= 0 writes every line.
func showLogs(w io.Writer, logFile string, n int, since time.Time) error {
	file, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	tail := newLineRing(n)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !since.IsZero() && olderThan(line, since) {
			continue
		}
		tail.push(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	for _, line := range tail.lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func olderThan(line string, since time.Time) bool {
	ts := extractTimestamp(line)
	return !ts.IsZero() && ts.Before(since)
}

// lineRing keeps the most recent lines pushed into it.
type lineRing struct {
	buf   []string
	limit int
	next  int
	full  bool
}

func newLineRing(limit int) *lineRing {
	return &lineRing{limit: limit}
}

func (r *lineRing) push(line string) {
	if r.limit <= 0 || len(r.buf) < r.limit {
		r.buf = append(r.buf, line)
		return
	}
	r.buf[r.next] = line
	r.next = (r.next + 1) % r.limit
	r.full = true
}

func (r *lineRing) lines() []string {
	if !r.full {
		return r.buf
	}
	return append(append([]string{}, r.buf[r.next:]...), r.buf[:r.next]...)
}

// followLogs copies complete lines appended to logFile to w until ctx is
// done. A line still being written is held back until its newline arrives.
func followLogs(ctx context.Context, w io.Writer, logFile string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(logFile); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	file, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of log file: %w", err)
	}
	reader := bufio.NewReader(file)
	var partial strings.Builder

	drain := func() error {
		for {
			chunk, err := reader.ReadString('\n')
			partial.WriteString(chunk)
			if err != nil {
				return nil
			}
			if _, err := io.WriteString(w, partial.String()); err != nil {
				return err
			}
			partial.Reset()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) {
				if err := drain(); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// textTimeLayout is the timestamp the text handler writes between brackets
// at the start of each line.
const textTimeLayout = "2006-01-02 15:04:05.000"

// extractTimestamp reads the time of a text or JSON log line. It returns the
// zero time when the line carries none.
func extractTimestamp(line string) time.Time {
	if strings.HasPrefix(line, "{") {
		var entry struct {
			Time time.Time `json:"time"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err == nil {
			return entry.Time
		}
		return time.Time{}
	}

	if len(line) < len(textTimeLayout)+2 || line[0] != '[' {
		return time.Time{}
	}
	ts, err := time.ParseInLocation(textTimeLayout, line[1:1+len(textTimeLayout)], time.Local)
	if err != nil {
		return time.Time{}
	}
	return ts
}
