// Package trace records completed transfers as zstd-compressed JSON lines,
// one file per hour.
package trace

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/ardnew/softportal/device"
	"github.com/ardnew/softportal/pkg"
)

// Record is one completed transfer.
type Record struct {
	Time     time.Time `json:"time"`
	Device   string    `json:"device"`
	Kind     string    `json:"kind"`
	Endpoint uint8     `json:"endpoint"`
	Setup    string    `json:"setup,omitempty"`
	Request  string    `json:"request"`
	Response string    `json:"response"`
	Count    int       `json:"count"`
	DelayUS  int64     `json:"delay_us"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
}

// NewRecord describes t after completion. request holds the transfer's
// bytes as submitted and submitted the time it was submitted.
func NewRecord(dev string, t *device.Transfer, request []byte, submitted time.Time) Record {
	r := Record{
		Time:     t.ExpectedTime,
		Device:   dev,
		Kind:     t.Kind.String(),
		Endpoint: t.Endpoint,
		Request:  hex.EncodeToString(request),
		Response: hex.EncodeToString(t.Data(t.Length)),
		Count:    t.ExpectedCount,
		Status:   t.Status.String(),
	}
	if err := t.Status.Error(); err != nil {
		r.Error = err.Error()
	}
	if t.ExpectedTime.IsZero() {
		r.Time = submitted
	} else {
		r.DelayUS = t.ExpectedTime.Sub(submitted).Microseconds()
	}
	if t.Kind == device.TransferKindControl {
		var buf [device.SetupPacketSize]byte
		t.Setup.MarshalTo(buf[:])
		r.Setup = hex.EncodeToString(buf[:])
	}
	return r
}

// Writer appends records to <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst, picking
// the file from each record's time.
type Writer struct {
	dir    string
	prefix string

	mutex   sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewWriter creates a writer rooted at dir. No file is opened until the
// first record.
func NewWriter(dir, prefix string) *Writer {
	return &Writer{dir: dir, prefix: prefix}
}

// Write appends r.
func (w *Writer) Write(r Record) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	hour := r.Time.UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes and closes the current file.
func (w *Writer) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.closeLocked()
}

// PathForHour returns the file that holds records of the hour containing t.
func (w *Writer) PathForHour(t time.Time) string {
	return w.pathForHour(t.UTC().Format("2006-01-02-15"))
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	pkg.LogDebug(pkg.ComponentTrace, "trace file opened", "path", path)
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

// ReadAll decodes every record in the trace file at path.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var out []Record
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return out, fmt.Errorf("%s: line %d: %w", filepath.Base(path), len(out)+1, err)
		}
		out = append(out, r)
	}
	return out, sc.Err()
}

// Files lists the trace files for prefix in dir, oldest first.
func Files(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".jsonl.zst") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}
