// Package storage persists routing events to disk. Each daemon run opens
// one journal file and appends every event the core posts, giving an
// after-the-fact trail of what was created, changed and removed.
package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is one journaled event.
type Record struct {
	Facility  string `json:"facility"`
	Action    string `json:"action"`
	Index     uint32 `json:"index"`
	Timestamp string `json:"timestamp"`
}

// JournalInfo summarizes one journal file.
type JournalInfo struct {
	UID       string `json:"uid"`
	Timestamp string `json:"timestamp"`
	Records   int    `json:"records"`
}

var safeNamePattern = regexp.MustCompile(`^[A-Za-z0-9_\-\.]+$`)

// Journal appends records to one file per daemon run. Append is safe to
// call from the core loop: it only enqueues, the file write happens on the
// journal's own goroutine inside Run.
type Journal struct {
	baseDir string
	uid     string
	file    *os.File
	queue   chan Record
}

// OpenJournal creates the journal file for this run.
func OpenJournal(baseDir string) (*Journal, error) {
	if baseDir == "" {
		return nil, errors.New("journal base dir is empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}

	uid := time.Now().Format("2006-01-02_15-04-05") + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	file, err := os.OpenFile(filepath.Join(baseDir, uid+".jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	return &Journal{
		baseDir: baseDir,
		uid:     uid,
		file:    file,
		queue:   make(chan Record, 256),
	}, nil
}

// UID returns this run's journal identifier.
func (j *Journal) UID() string { return j.uid }

// Append enqueues one record; a full queue drops it rather than blocking
// the caller.
func (j *Journal) Append(rec Record) {
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().Format(time.RFC3339Nano)
	}
	select {
	case j.queue <- rec:
	default:
	}
}

// Run writes queued records until Close. It returns after draining.
func (j *Journal) Run() {
	w := bufio.NewWriter(j.file)
	for rec := range j.queue {
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		w.Write(data)
		w.WriteByte('\n')
		w.Flush()
	}
	j.file.Close()
}

// Close stops accepting records; Run finishes writing what was queued.
func (j *Journal) Close() {
	close(j.queue)
}

// List summarizes every journal in the base directory, newest first.
func (j *Journal) List() []JournalInfo {
	return ListJournals(j.baseDir)
}

// Read returns the records of one journal by UID.
func (j *Journal) Read(uid string) ([]Record, error) {
	return ReadJournal(j.baseDir, uid)
}

// ListJournals summarizes every journal under baseDir, newest first.
func ListJournals(baseDir string) []JournalInfo {
	list := []JournalInfo{}
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return list
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		uid := strings.TrimSuffix(entry.Name(), ".jsonl")
		records, err := ReadJournal(baseDir, uid)
		if err != nil {
			continue
		}
		info := JournalInfo{UID: uid, Records: len(records)}
		if len(records) > 0 {
			info.Timestamp = records[len(records)-1].Timestamp
		}
		list = append(list, info)
	}

	sort.Slice(list, func(i, k int) bool {
		return list[i].UID > list[k].UID
	})
	return list
}

// ReadJournal loads all records of one journal.
func ReadJournal(baseDir string, uid string) ([]Record, error) {
	if baseDir == "" {
		return nil, errors.New("journal base dir is empty")
	}
	if !safeNamePattern.MatchString(uid) {
		return nil, errors.New("invalid journal uid")
	}

	file, err := os.Open(filepath.Join(baseDir, uid+".jsonl"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records := []Record{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}
