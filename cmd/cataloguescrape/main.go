// Command cataloguescrape fetches the university catalogue pages,
// extracts programme and module records, and writes them to
// majors.json / modules.json. With -load-url it also pushes the batch
// to a running StudyCircle instance's /catalogue/load endpoint.
//
// It is an offline batch job: run it from cron or by hand whenever the
// catalogue changes. Exit code 1 on any fatal error.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/studycircle/studycircle/internal/domain/models"
	"go.uber.org/zap"
)

type batchPayload struct {
	Source  string          `json:"source"`
	Modules []models.Module `json:"modules"`
	Majors  []models.Major  `json:"majors"`
}

func main() {
	var (
		baseURL  = flag.String("base", "https://catalogue.example.edu", "catalogue site base URL")
		outDir   = flag.String("out", ".", "directory for majors.json and modules.json")
		loadURL  = flag.String("load-url", "", "optional StudyCircle /catalogue/load URL to push the batch to")
		adminKey = flag.String("admin-key", os.Getenv("STUDYCIRCLE_CATALOGUE_ADMIN_KEY"), "admin key for the load endpoint")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*baseURL, *outDir, *loadURL, *adminKey, logger); err != nil {
		logger.Error("scrape failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(baseURL, outDir, loadURL, adminKey string, logger *zap.Logger) error {
	client := &http.Client{Timeout: 30 * time.Second}

	// The catalogue splits programmes across two listing pages.
	ugDoc, err := fetchDocument(client, baseURL+"/programmes/undergraduate", logger)
	if err != nil {
		return err
	}
	pgDoc, err := fetchDocument(client, baseURL+"/programmes/postgraduate", logger)
	if err != nil {
		return err
	}
	modDoc, err := fetchDocument(client, baseURL+"/modules", logger)
	if err != nil {
		return err
	}

	majors := mergeMajors(parseProgrammes(ugDoc), parseProgrammes(pgDoc))
	modules := parseModules(modDoc)
	if len(majors) == 0 && len(modules) == 0 {
		return fmt.Errorf("no programmes or modules extracted; site markup may have changed")
	}
	logger.Info("catalogue scraped",
		zap.Int("majors", len(majors)),
		zap.Int("modules", len(modules)))

	if err := writeJSON(filepath.Join(outDir, "majors.json"), majors); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(outDir, "modules.json"), modules); err != nil {
		return err
	}

	if loadURL == "" {
		return nil
	}
	return upload(client, loadURL, adminKey, batchPayload{
		Source:  baseURL,
		Modules: modules,
		Majors:  majors,
	}, logger)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func upload(client *http.Client, loadURL, adminKey string, payload batchPayload, logger *zap.Logger) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, loadURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if adminKey != "" {
		req.Header.Set("X-Admin-Key", adminKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("load push: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("load endpoint returned %d", resp.StatusCode)
	}

	var result struct {
		BatchID string `json:"batch_id"`
		Modules int    `json:"modules"`
		Majors  int    `json:"majors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	logger.Info("catalogue pushed",
		zap.String("batch_id", result.BatchID),
		zap.Int("modules", result.Modules),
		zap.Int("majors", result.Majors))
	return nil
}
