package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/hibiken/asynq"

	"rdFolio/internal/config"
	"rdFolio/internal/database"
	"rdFolio/internal/errcode"
	"rdFolio/internal/storage"
	"rdFolio/internal/tasks"
)

func main() {
	var (
		status       = flag.String("status", database.DeliveryFailed, "要列出的投递状态（pending/sent/failed）")
		limit        = flag.Int("limit", 50, "最多列出的记录数")
		requeue      = flag.Bool("requeue", false, "把列出的 failed 记录重置为 pending 并重新入队")
		uploadResume = flag.String("upload-resume", "", "上传本地 PDF 作为静态简历对象")
	)
	flag.Parse()

	cfg := config.MustLoad()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if path := strings.TrimSpace(*uploadResume); path != "" {
		if err := uploadResumeFile(ctx, cfg.MinIO, path); err != nil {
			log.Fatalf("upload resume: %v", err)
		}
		return
	}

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	store := database.NewDeliveryStore(db)

	deliveries, err := store.ListByStatus(ctx, *status, *limit)
	if err != nil {
		log.Fatalf("list deliveries: %v", err)
	}
	printDeliveries(deliveries)

	if !*requeue {
		return
	}
	if *status != database.DeliveryFailed {
		log.Fatal("--requeue only applies to --status=failed")
	}

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer client.Close()

	requeued := 0
	for _, d := range deliveries {
		if err := requeueDelivery(ctx, store, client, d, cfg.Contact.MaxRetry); err != nil {
			log.Printf("requeue delivery %d: %v", d.ID, err)
			continue
		}
		requeued++
	}
	fmt.Printf("已重新入队 %d/%d 条投递记录\n", requeued, len(deliveries))
}

func printDeliveries(deliveries []database.ContactDelivery) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCORRELATION\tEMAIL\tSTATUS\tATTEMPTS\tCREATED\tLAST ERROR")
	for _, d := range deliveries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			d.ID,
			d.CorrelationID,
			d.Email,
			d.Status,
			d.Attempts,
			d.CreatedAt.Format(time.RFC3339),
			d.LastError,
		)
	}
	_ = w.Flush()
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func requeueDelivery(ctx context.Context, store *database.DeliveryStore, client taskEnqueuer, d database.ContactDelivery, maxRetry int) error {
	if err := store.ResetForRetry(ctx, d.ID); err != nil {
		if errors.Is(err, database.ErrDeliveryNotFound) {
			return fmt.Errorf("delivery is no longer failed")
		}
		return err
	}
	task, err := tasks.NewContactDeliverTask(d.ID, d.CorrelationID, asynq.MaxRetry(maxRetry))
	if err != nil {
		return err
	}
	if _, err := client.EnqueueContext(ctx, task); err != nil {
		// 入队失败时恢复为 failed，下次还能再列出来。
		if markErr := store.RecordAttempt(ctx, d.ID, err, true, errcode.SystemError); markErr != nil {
			log.Printf("restore delivery %d to failed: %v", d.ID, markErr)
		}
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

func uploadResumeFile(ctx context.Context, cfg config.MinIOConfig, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	client, err := storage.NewClient(cfg)
	if err != nil {
		return err
	}
	if _, err := client.UploadFile(ctx, cfg.ResumeObjectKey, f, info.Size(), "application/pdf"); err != nil {
		return err
	}
	fmt.Printf("已上传 %s -> %s/%s (%d bytes)\n", path, cfg.Bucket, cfg.ResumeObjectKey, info.Size())
	return nil
}
