// Command import-entries loads a membership export into MongoDB and optionally enters every
// imported member into a draw.
//
//	import-entries --file members.csv [--draw 65f0c1...] [--ensure-indexes=false]
//
// IMPORT_DRAW_ID and IMPORT_ENSURE_INDEXES supply the flag defaults.
package main

import (
	"context"
	"os"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/config"
	mongorepo "github.com/ArowuTest/prizedraw-engine/internal/repositories/mongodb"
	"github.com/ArowuTest/prizedraw-engine/internal/utils"
	mongodb "github.com/ArowuTest/prizedraw-engine/pkg/mongodb"
	"github.com/spf13/pflag"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

func main() {
	filePath := pflag.StringP("file", "f", "", "CSV file to import")
	drawHex := pflag.StringP("draw", "d", config.GetEnv("IMPORT_DRAW_ID", ""), "draw id to enter the imported members into")
	ensureIndexes := pflag.Bool("ensure-indexes", config.GetEnvAsBool("IMPORT_ENSURE_INDEXES", true), "create missing indexes before importing")
	timeout := pflag.Duration("timeout", 10*time.Minute, "overall import timeout")
	pflag.Parse()

	if *filePath == "" {
		slog.Error("A CSV file is required (--file)")
		pflag.Usage()
		os.Exit(2)
	}

	drawID := primitive.NilObjectID
	if *drawHex != "" {
		id, err := primitive.ObjectIDFromHex(*drawHex)
		if err != nil {
			slog.Error("Invalid draw id", "draw", *drawHex, "error", err)
			os.Exit(2)
		}
		drawID = id
	}

	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	f, err := os.Open(*filePath)
	if err != nil {
		slog.Error("Failed to open CSV file", "file", *filePath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB.Database)
	if *ensureIndexes {
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			slog.Error("Failed to create indexes", "error", err)
			os.Exit(1)
		}
	}

	importer := utils.NewCSVImporter(mongorepo.NewMembershipRepository(db), mongorepo.NewEntryRepository(db))
	result, err := importer.Import(ctx, f, drawID)
	if err != nil {
		slog.Error("Import failed", "error", err)
		os.Exit(1)
	}

	for _, e := range result.Errors {
		slog.Warn("Row skipped", "reason", e)
	}
	slog.Info("Import completed",
		"rows", result.TotalRows,
		"memberships", result.MembershipsUpdated,
		"entriesCreated", result.EntriesCreated,
		"entriesSkipped", result.EntriesSkipped,
		"errors", len(result.Errors))
}
