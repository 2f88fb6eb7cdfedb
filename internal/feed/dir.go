package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fx-market-risk/internal/model"
)

// ReadRatesDir decodes every .json file in dir into rate observations.
// The file name becomes the source identifier and the file modification
// time the ingestion timestamp, so re-reading an unchanged drop directory
// merges as a no-op.
func ReadRatesDir(dir string) ([]model.RateObservation, error) {
	files, err := listJSONFiles(dir)
	if err != nil {
		return nil, err
	}

	var out []model.RateObservation
	for _, file := range files {
		obs, err := readRateFile(file)
		if err != nil {
			return nil, err
		}
		out = append(out, obs...)
	}
	return out, nil
}

// ReadPositionsDir decodes every .json file in dir into position records.
func ReadPositionsDir(dir string) ([]model.PositionRecord, error) {
	files, err := listJSONFiles(dir)
	if err != nil {
		return nil, err
	}

	var out []model.PositionRecord
	for _, file := range files {
		recs, err := readPositionFile(file)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func readRateFile(path string) ([]model.RateObservation, error) {
	f, ingested, err := openWithModTime(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeRates(f, filepath.Base(path), ingested)
}

func readPositionFile(path string) ([]model.PositionRecord, error) {
	f, ingested, err := openWithModTime(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodePositions(f, filepath.Base(path), ingested)
}

func openWithModTime(path string) (*os.File, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("feed: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, time.Time{}, fmt.Errorf("feed: stat %s: %w", path, err)
	}
	return f, info.ModTime().UTC(), nil
}

func listJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("feed: read dir %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}
