package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"

	"contactscrape/internal/browser"
	"contactscrape/internal/config"
	"contactscrape/internal/extract"
	"contactscrape/internal/scrape"
	"contactscrape/internal/workbook"
)

const logFile = "scraper.log"

func main() {
	setupLogging()

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("          COMPANY CONTACT SCRAPER")
	fmt.Println(strings.Repeat("=", 60))

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		holdExit()
		return
	}

	wb, err := workbook.Open(cfg.InputFile, cfg.OutputMode)
	if err != nil {
		log.Error("failed to load spreadsheet", "file", cfg.InputFile, "error", err)
		holdExit()
		return
	}
	defer wb.Close()

	showProgress(wb)

	count, err := promptCount(os.Stdin)
	if err != nil {
		fmt.Printf("%v\n", err)
		holdExit()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := browser.NewSession(cfg.Headless, cfg.UserAgent, cfg.PageTimeout)
	if err != nil {
		log.Error("failed to start browser, check that Chrome is installed", "error", err)
		holdExit()
		return
	}
	defer session.Close()

	extractor := buildExtractor(cfg)
	scraper := scrape.New(wb, session, extractor, scrape.Options{
		RowDelay: cfg.RowDelay,
		Spinner:  true,
	})

	sum, err := scraper.Run(ctx, count)
	if err != nil {
		log.Error("run aborted", "error", err)
	}
	if ctx.Err() != nil {
		fmt.Println("\nProcess interrupted. Progress through the last completed row is saved.")
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("                     SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Processed websites: %d\n", sum.Processed)
	fmt.Printf("  with contacts:    %d\n", sum.Found)
	fmt.Printf("  nothing found:    %d\n", sum.NotFound)
	fmt.Printf("  errors:           %d\n", sum.Errors)
	fmt.Printf("  duplicates:       %d\n", sum.Duplicates)
	fmt.Printf("Data saved to: %s\n", wb.OutputPath())
	fmt.Printf("Detailed logs: %s\n", logFile)
	fmt.Println(strings.Repeat("=", 60))

	holdExit()
}

// setupLogging mirrors everything written to the console into scraper.log.
func setupLogging() {
	if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}
	log.SetReportTimestamp(true)
}

func showProgress(wb *workbook.Workbook) {
	stats, err := wb.Stats()
	if err != nil {
		log.Warn("could not compute progress", "error", err)
		return
	}
	fmt.Println("\nCurrent progress:")
	fmt.Printf("  Total rows:   %d\n", stats.TotalRows)
	fmt.Printf("  Emails found: %d\n", stats.EmailsFound)
	fmt.Printf("  Phones found: %d\n", stats.PhonesFound)
	fmt.Printf("  Completion:   %.1f%%\n", stats.Completion)
}

// promptCount asks how many websites to process and validates the answer.
func promptCount(in io.Reader) (int, error) {
	fmt.Print("\nHow many websites would you like to process? ")
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return 0, fmt.Errorf("no input")
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return 0, fmt.Errorf("please enter a valid number")
	}
	if n <= 0 {
		return 0, fmt.Errorf("please enter a positive number")
	}
	return n, nil
}

func buildExtractor(cfg *config.Config) extract.Extractor {
	if cfg.Extractor == config.ExtractorAI {
		ai, err := extract.NewAIExtractor(cfg.AIEndpoint, cfg.AIKey, cfg.AIModel, cfg.TextLimit)
		if err == nil {
			log.Info("using AI extraction", "model", cfg.AIModel)
			return ai
		}
		log.Warn("AI extractor unavailable, falling back to regex", "error", err)
	}
	log.Info("using regex extraction")
	return extract.RegexExtractor{}
}

// holdExit keeps the console window open until the user confirms, so runs
// started by double-click do not vanish with their output.
func holdExit() {
	fmt.Print("\nPress Enter to close this app...")
	bufio.NewReader(os.Stdin).ReadString('\n')
}
