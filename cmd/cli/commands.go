package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/bread133/xk7-retail-group/pkg/contentdna"
	"github.com/bread133/xk7-retail-group/pkg/contentdna/media"
	"github.com/bread133/xk7-retail-group/pkg/logger"
	"github.com/bread133/xk7-retail-group/pkg/models"
	"github.com/bread133/xk7-retail-group/pkg/utils"
)

const (
	addTimeout   = 15 * time.Minute
	matchTimeout = 10 * time.Minute
	maxDisplay   = 10
)

func trackFlags(fs *flag.FlagSet) (audioOnly, videoOnly *bool) {
	audioOnly = fs.Bool("audio-only", false, "Fingerprint only the audio track")
	videoOnly = fs.Bool("video-only", false, "Fingerprint only the video track")
	return audioOnly, videoOnly
}

func handleAdd(args []string) {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	title := addCmd.String("title", "", "Content title (default: container title or file name)")
	audioOnly, videoOnly := trackFlags(addCmd)
	positional := parseArgs(addCmd, args)

	if len(positional) != 1 {
		fmt.Println("Usage: xk7 add <file> [--title <title>] [--audio-only|--video-only]")
		os.Exit(1)
	}
	if *audioOnly && *videoOnly {
		fmt.Println("Error: --audio-only and --video-only are exclusive")
		os.Exit(1)
	}
	path := positional[0]

	fmt.Println("\n🔧 Initializing service...")
	svc := mustCreateService()
	defer svc.Close()

	fmt.Println("🎞  Processing media file...")
	fmt.Println("   This may take a few moments for large files")

	ctx, cancel := context.WithTimeout(context.Background(), addTimeout)
	defer cancel()

	id, err := svc.AddFile(ctx, path, contentdna.AddOptions{
		Title:     *title,
		SkipAudio: *videoOnly,
		SkipVideo: *audioOnly,
	})
	if err != nil {
		fmt.Printf("\n❌ Failed to add content: %v\n", err)
		logger.Errorf("AddFile failed: %v", err)
		os.Exit(1)
	}

	info, err := svc.GetContentByID(ctx, id)
	if err != nil {
		fmt.Printf("\n✅ Added content %s\n", id)
		return
	}
	fmt.Println("\n✅ Successfully added content to database!")
	printContent(0, info)
}

func handleMatch(args []string) {
	matchCmd := flag.NewFlagSet("match", flag.ExitOnError)
	withVideo := matchCmd.Bool("video", false, "Verify audio matches against the video track")
	positional := parseArgs(matchCmd, args)

	if len(positional) != 1 {
		fmt.Println("Usage: xk7 match <file> [--video]")
		os.Exit(1)
	}
	path := positional[0]

	fmt.Println("\n🔧 Initializing service...")
	svc := mustCreateService()
	defer svc.Close()

	fmt.Println("🔍 Analyzing file...")
	fmt.Println("   Generating fingerprints and searching database")

	ctx, cancel := context.WithTimeout(context.Background(), matchTimeout)
	defer cancel()

	report, err := svc.MatchFile(ctx, path, *withVideo)
	if err != nil {
		fmt.Printf("\n❌ Failed to match file: %v\n", err)
		logger.Errorf("MatchFile failed: %v", err)
		os.Exit(1)
	}

	ids := matchedIDs(report)
	if len(ids) == 0 {
		fmt.Println("\n❌ No matches found in database")
		return
	}

	fmt.Printf("\n✅ Found reused content from %d reference(s) (%s query hashes)\n\n",
		len(ids), humanize.Comma(int64(report.QueryHashes)))

	for i, id := range ids {
		if i == maxDisplay {
			fmt.Printf("... and %d more references\n", len(ids)-maxDisplay)
			break
		}

		title := id
		if info, err := svc.GetContentByID(ctx, id); err == nil {
			title = fmt.Sprintf("%q (%s)", info.Title, id)
		}
		fmt.Printf("%d. %s\n", i+1, title)
		for _, r := range report.Audio[id] {
			fmt.Printf("   audio %s-%s  ↔  reference %s-%s\n",
				clock(r.StartSec), clock(r.EndSec), clock(r.StartSec+r.OffsetSec), clock(r.EndSec+r.OffsetSec))
		}
		for _, m := range report.Video[id] {
			fmt.Printf("   video %s-%s  ↔  reference %s-%s\n",
				clock(m.LocalStartMs/1000), clock(m.LocalEndMs/1000), clock(m.DBStartMs/1000), clock(m.DBEndMs/1000))
		}
		fmt.Println()
	}
}

// matchedIDs returns every content id with an audio or video match, sorted.
func matchedIDs(r *contentdna.MatchReport) []string {
	seen := map[string]bool{}
	var ids []string
	for id := range r.Audio {
		seen[id] = true
		ids = append(ids, id)
	}
	for id := range r.Video {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func handleList() {
	svc := mustCreateService()
	defer svc.Close()

	contents, err := svc.ListContent(context.Background())
	if err != nil {
		fmt.Printf("❌ Failed to list content: %v\n", err)
		logger.Errorf("ListContent failed: %v", err)
		os.Exit(1)
	}

	if len(contents) == 0 {
		fmt.Println("\n📭 No content in database")
		return
	}

	fmt.Printf("\n📚 Found %d content item(s):\n\n", len(contents))
	for i := range contents {
		printContent(i+1, &contents[i])
	}
}

func printContent(n int, c *contentdna.ContentInfo) {
	if n > 0 {
		fmt.Printf("%d. \"%s\" [%s]\n", n, c.Title, c.Kind)
	} else {
		fmt.Printf("   Title:    %s [%s]\n", c.Title, c.Kind)
	}
	fmt.Printf("   ID:       %s\n", c.ID)
	if c.DurationMs > 0 {
		fmt.Printf("   Duration: %s\n", clock(c.DurationMs/1000))
	}
	fmt.Printf("   Hashes:   %s audio, %s video\n", humanize.Comma(int64(c.AudioHashes)), humanize.Comma(int64(c.VideoRecords)))
	if !c.CreatedAt.IsZero() {
		fmt.Printf("   Added:    %s\n", humanize.Time(c.CreatedAt))
	}
	fmt.Println()
}

func handleDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: xk7 delete <content_id>")
		os.Exit(1)
	}
	id := args[0]
	if !utils.IsUUID(id) {
		fmt.Printf("❌ Invalid content ID: %s\n", id)
		os.Exit(1)
	}

	svc := mustCreateService()
	defer svc.Close()
	ctx := context.Background()

	info, err := svc.GetContentByID(ctx, id)
	if err != nil {
		if contentdna.IsNotFound(err) {
			fmt.Printf("❌ Content not found (ID: %s)\n", id)
		} else {
			fmt.Printf("❌ Failed to look up content: %v\n", err)
		}
		os.Exit(1)
	}

	if err := svc.DeleteContent(ctx, id); err != nil {
		fmt.Printf("❌ Failed to delete content: %v\n", err)
		logger.Errorf("DeleteContent failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("\n✅ Successfully deleted content:\n")
	printContent(0, info)
}

func handleIndex(args []string) {
	indexCmd := flag.NewFlagSet("index", flag.ExitOnError)
	workers := indexCmd.Int("workers", 2, "Files processed in parallel")
	audioOnly, videoOnly := trackFlags(indexCmd)
	positional := parseArgs(indexCmd, args)

	if len(positional) != 1 {
		fmt.Println("Usage: xk7 index <dir> [--workers <n>] [--audio-only|--video-only]")
		os.Exit(1)
	}

	files, err := utils.ListMediaFiles(positional[0], utils.MediaExtensions)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("📭 No media files found")
		return
	}

	// progress bar owns the terminal; only warnings reach the log
	log := logger.GetLogger()
	level := log.Level()
	log.SetLevel(max(level, logger.WARN))
	defer log.SetLevel(level)

	svc := mustCreateService(contentdna.WithWorkers(*workers))
	defer svc.Close()

	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(int64(len(files)),
		mpb.PrependDecorators(
			decor.Name("Indexing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	items := make(map[string]string, len(files))
	for _, f := range files {
		items[f] = f
	}

	ctx := context.Background()
	results, errs := contentdna.RunBatch(ctx, items, *workers, func(ctx context.Context, path, _ string) (string, error) {
		start := time.Now()
		defer func() { bar.EwmaIncrement(time.Since(start)) }()

		ctx, cancel := context.WithTimeout(ctx, addTimeout)
		defer cancel()
		return svc.AddFile(ctx, path, contentdna.AddOptions{SkipAudio: *videoOnly, SkipVideo: *audioOnly})
	})
	p.Wait()

	fmt.Printf("\n✅ Indexed %s of %s files\n", humanize.Comma(int64(len(results))), humanize.Comma(int64(len(files))))
	if len(errs) > 0 {
		failed := make([]string, 0, len(errs))
		for path := range errs {
			failed = append(failed, path)
		}
		sort.Strings(failed)

		fmt.Printf("❌ %d file(s) failed:\n", len(failed))
		for _, path := range failed {
			fmt.Printf("   %s: %v\n", filepath.Base(path), errs[path])
			if errors.Is(errs[path], models.ErrEmptyInput) {
				log.With(filepath.Base(path)).Warnf("No usable frames")
			}
		}
	}
}

func handleSpectrogram(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: xk7 spectrogram <wav_file> <png_file>")
		os.Exit(1)
	}

	w, err := media.ReadWAV(args[0])
	if err != nil {
		fmt.Printf("❌ Failed to read WAV: %v\n", err)
		os.Exit(1)
	}
	if err := media.RenderSpectrogram(w, args[1]); err != nil {
		fmt.Printf("❌ Failed to render spectrogram: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Saved spectrogram to %s (%s samples at %d Hz)\n", args[1], humanize.Comma(int64(len(w.Samples))), w.SampleRate)
}

// clock formats seconds as m:ss.
func clock(sec int) string {
	sign := ""
	if sec < 0 {
		sign, sec = "-", -sec
	}
	return fmt.Sprintf("%s%d:%02d", sign, sec/60, sec%60)
}
