package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/threadscribe/internal/chat"
	"github.com/edgard/threadscribe/internal/database"
	"github.com/edgard/threadscribe/internal/metrics"
)

// Log lines look like:
//
//	[2025-10-16 14:25:30 EDT] [Mod] Username: Message content
//	[2025-10-16 14:25:30 EDT] Username (reply to Other (2025-10-16 14:20:00)): Message content  [edited]
var (
	logLinePattern   = regexp.MustCompile(`^\[(.*?)\] (.*?)(?: \(reply to (.*?)\))?: (.*?)( {1,2}\[edited\])?$`)
	logAuthorPattern = regexp.MustCompile(`^\[(.*?)\]\s*(.*)$`)
)

// LogEntry is one parsed log line.
type LogEntry struct {
	Timestamp time.Time
	Author    string
	Role      string
	ReplyTo   string
	Content   string
	Edited    bool
}

// ParseLogLine parses a single line. The timestamp's zone abbreviation is
// informational only: the wall time is read in loc (UTC when nil), except for
// UTC and GMT which are always UTC.
func ParseLogLine(line string, loc *time.Location) (LogEntry, bool) {
	m := logLinePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return LogEntry{}, false
	}

	ts, ok := parseLogTimestamp(strings.TrimSpace(m[1]), loc)
	if !ok {
		return LogEntry{}, false
	}

	entry := LogEntry{
		Timestamp: ts,
		Author:    strings.TrimSpace(m[2]),
		ReplyTo:   strings.TrimSpace(m[3]),
		Content:   strings.TrimSpace(m[4]),
		Edited:    m[5] != "",
	}
	if am := logAuthorPattern.FindStringSubmatch(entry.Author); am != nil {
		entry.Role = strings.TrimSpace(am[1])
		entry.Author = strings.TrimSpace(am[2])
	}
	if entry.Author == "" {
		return LogEntry{}, false
	}
	return entry, true
}

func parseLogTimestamp(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	fields := strings.Fields(s)
	if len(fields) < 2 || len(fields) > 3 {
		return time.Time{}, false
	}
	if len(fields) == 3 {
		switch strings.ToUpper(fields[2]) {
		case "UTC", "GMT", "Z":
			loc = time.UTC
		}
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", fields[0]+" "+fields[1], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ImportLog replays a message log file into a watched thread. Lines that do
// not parse are counted as skipped. Entries already stored under the same
// author and timestamp are not inserted twice, so a log can be re-imported.
func (r *Reconciler) ImportLog(ctx context.Context, threadID int64, src io.Reader, loc *time.Location) (ImportResult, error) {
	res := ImportResult{ID: uuid.NewString()}
	log := r.logger.With("import_id", res.ID, "thread_id", threadID, "source", "log")

	ok, err := r.watched(ctx, threadID)
	if err != nil {
		return res, err
	}
	if !ok {
		return res, fmt.Errorf("thread %d is not watched", threadID)
	}

	horizon := r.now().Add(-r.opts.Retention)
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res.Seen++

		entry, ok := ParseLogLine(line, loc)
		if !ok || entry.Content == "" {
			res.Skipped++
			continue
		}
		if r.opts.Retention > 0 && entry.Timestamp.Before(horizon) {
			res.Expired++
			continue
		}

		existing, err := r.store.FindMessageByIdentity(ctx, threadID, entry.Author, entry.Timestamp)
		if err != nil {
			metrics.RecordImport("error", res.Stored)
			return res, fmt.Errorf("failed to check for stored message: %w", err)
		}
		if existing != nil {
			res.Duplicates++
			continue
		}

		row := &database.Message{
			ThreadID:  threadID,
			Author:    entry.Author,
			Role:      database.NullString(r.roleTag(entry.Role)),
			Content:   entry.Content,
			CreatedAt: entry.Timestamp,
			ReplyTo:   database.NullString(entry.ReplyTo),
			Edited:    entry.Edited,
		}
		if err := r.store.SaveMessage(ctx, row); err != nil {
			metrics.RecordImport("error", res.Stored)
			return res, fmt.Errorf("log import stopped after %d messages: %w", res.Stored, err)
		}
		res.Stored++
	}
	if err := scanner.Err(); err != nil {
		metrics.RecordImport("error", res.Stored)
		return res, fmt.Errorf("failed to read log: %w", err)
	}

	metrics.RecordImport("ok", res.Stored)
	log.InfoContext(ctx, "Log import finished", "seen", res.Seen, "stored", res.Stored,
		"skipped", res.Skipped, "expired", res.Expired, "duplicates", res.Duplicates)
	return res, nil
}

// roleTag maps a role label from a log line onto a stored tag.
func (r *Reconciler) roleTag(label string) string {
	switch {
	case label == "":
		return ""
	case strings.EqualFold(label, chat.RoleDev):
		return chat.RoleDev
	case strings.EqualFold(label, chat.RoleMod):
		return chat.RoleMod
	default:
		return r.roles.Role([]string{label})
	}
}
