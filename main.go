package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"nearby-listings/internal/api"
	"nearby-listings/internal/config"
	"nearby-listings/internal/dataset"
	"nearby-listings/internal/gdp"
	"nearby-listings/internal/jobs"
)

func main() {
	cfg := config.Default()

	gin.SetMode(gin.ReleaseMode)

	start := time.Now()
	ds, err := dataset.Load(cfg.SubjectsFile, cfg.LandmarksFile)
	if err != nil {
		log.Fatalf("Failed to load data: %v", err)
	}
	log.Printf("Data loaded in %s (%d subjects, %d landmarks)", time.Since(start).Truncate(time.Millisecond), len(ds.Subjects), len(ds.Landmarks))

	// The GDP browser is optional; the proximity finder works without it.
	var gdpTable *gdp.Table
	if gdpTable, err = gdp.Load(cfg.GDPFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("Failed to load GDP data: %v", err)
		}
		log.Printf("GDP data not found at %s, /api/gdp disabled", cfg.GDPFile)
		gdpTable = nil
	}

	h := api.NewHandler(cfg, ds, gdpTable, jobs.NewStore())
	r := api.NewRouter(h)

	fmt.Printf("Nearby listings server running on port %s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
