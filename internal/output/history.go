package output

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gofrs/flock"
)

// AppendHistory appends sum as one JSON line to path. A sibling lock file
// serialises writers from concurrent pepe processes.
func AppendHistory(path string, sum Summary) error {
	line, err := json.Marshal(sum)
	if err != nil {
		return err
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("write history: %w", err)
	}
	return f.Close()
}

// ReadHistory returns every run recorded in path, oldest first. A missing
// file is an empty history.
func ReadHistory(path string) ([]Summary, error) {
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock history: %w", err)
	}
	defer lock.Unlock()

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var runs []Summary
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for n := 1; sc.Scan(); n++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var s Summary
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			return nil, fmt.Errorf("history line %d: %w", n, err)
		}
		runs = append(runs, s)
	}
	return runs, sc.Err()
}

// PreviousRun returns the most recent recorded run against the same method
// and URL.
func PreviousRun(path, method, url string) (Summary, bool, error) {
	runs, err := ReadHistory(path)
	if err != nil {
		return Summary{}, false, err
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Method == method && runs[i].URL == url {
			return runs[i], true, nil
		}
	}
	return Summary{}, false, nil
}
