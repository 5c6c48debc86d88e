// Command crawl runs a one-shot crawl without the API server or database:
// it crawls the given sites (or all of them), checkpoints under the jobs
// directory, and writes the Excel report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/driver"
	"github.com/shoplens/shop-crawler/internal/export"
	"github.com/shoplens/shop-crawler/internal/jobstore"
	"github.com/shoplens/shop-crawler/internal/logger"
	"github.com/shoplens/shop-crawler/internal/scraper"
	"github.com/shoplens/shop-crawler/internal/sites"
)

func main() {
	jobsDir := flag.String("jobs-dir", "tmp_jobs", "Directory for checkpoints and reports")
	siteList := flag.String("sites", "", "Comma-separated site URLs (default: all supported sites)")
	headless := flag.Bool("headless", true, "Run the browser headless")
	settle := flag.Duration("settle", 2*time.Second, "Delay between page loads")
	flag.Parse()

	log, err := logger.New("development")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	urls := sites.TargetURLs()
	if *siteList != "" {
		urls = nil
		for _, u := range strings.Split(*siteList, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
	}
	if len(urls) == 0 {
		log.Fatal("no sites to crawl")
	}

	store, err := jobstore.New(*jobsDir)
	if err != nil {
		log.Fatal("failed to initialize job store", zap.Error(err))
	}

	rodCfg := driver.DefaultRodConfig()
	rodCfg.Headless = *headless
	drv, err := driver.NewRodDriver(rodCfg, log)
	if err != nil {
		log.Fatal("failed to start browser session", zap.Error(err))
	}

	runner := scraper.NewRunner(drv, store, export.NewExcel(store, log),
		scraper.NopRecorder{}, *settle, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("interrupt received, stopping run")
		runner.Stop()
		cancel()
	}()

	jobID := uuid.NewString()
	sum := runner.RunMany(ctx, jobID, urls)

	fmt.Printf("job:      %s\n", sum.JobID)
	fmt.Printf("products: %d\n", sum.TotalProducts)
	for site, n := range sum.SiteCounts {
		fmt.Printf("  %s: %d\n", site, n)
	}
	if sum.ExportPath != "" {
		fmt.Printf("report:   %s\n", sum.ExportPath)
	}
	fmt.Printf("message:  %s\n", sum.Message)
	if !sum.Success {
		os.Exit(1)
	}
}
