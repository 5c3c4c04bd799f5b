// 包 ingest：轨迹文件导入编排，负责重复判定、提取、分段登记与单文件事务落库
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"track-spatial/internal/extract"
	"track-spatial/internal/logger"
	"track-spatial/internal/metrics"
	"track-spatial/internal/model"
	"track-spatial/internal/recording"
	"track-spatial/internal/store"
)

// Options：导入开关，透传给提取器
type Options struct {
	Extract extract.Options
}

// FileResult：单个文件的导入结果
// 约束：Trail 记录依次经过的状态，末项即 State
type FileResult struct {
	Path       string
	Hash       string
	State      State
	Trail      []State
	Segments   int
	Points     int
	Duplicates int
	Lines      int
	Waypoints  int
}

// BatchResult：批量导入汇总
type BatchResult struct {
	Files           []FileResult
	Committed       int
	AlreadyImported int
	Skipped         int
	Points          int
	Duplicates      int
}

func (b *BatchResult) add(fr FileResult) {
	b.Files = append(b.Files, fr)
	switch fr.State {
	case Committed:
		b.Committed++
	case AlreadyImported:
		b.AlreadyImported++
	case Skipped:
		b.Skipped++
	}
	b.Points += fr.Points
	b.Duplicates += fr.Duplicates
}

// Importer：导入编排器
// 约束：同步执行，一次只持有一个文件事务；事务存续期间不经由事务外访问数据库
type Importer struct {
	st   *store.Store
	ex   *extract.Extractor
	opts Options
	log  *slog.Logger
	now  func() time.Time
}

func NewImporter(st *store.Store, ex *extract.Extractor, opts Options, log *slog.Logger) *Importer {
	return &Importer{st: st, ex: ex, opts: opts, log: logger.Or(log), now: time.Now}
}

// 文档注释：按输入顺序导入一批文件
// 背景：已导入、解析失败与无时间信息的文件只跳过，不影响后续文件；每个文件独立提交。
// 异常：写入阶段的摘要冲突（store.ErrDuplicateFile）与数据库错误终止整批，已提交的文件保持有效。
func (i *Importer) ImportBatch(ctx context.Context, userID int64, paths []string) (BatchResult, error) {
	var br BatchResult
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return br, err
		}
		fr, err := i.ImportFile(ctx, userID, p)
		br.add(fr)
		if err != nil {
			return br, fmt.Errorf("%s: %w", p, err)
		}
	}
	i.log.Info("import_batch_done", "files", len(paths), "committed", br.Committed,
		"already_imported", br.AlreadyImported, "skipped", br.Skipped, "points", br.Points, "duplicates", br.Duplicates)
	return br, nil
}

// ImportFile：单个文件的完整状态流转
func (i *Importer) ImportFile(ctx context.Context, userID int64, path string) (FileResult, error) {
	res := FileResult{Path: path, State: NotStarted}
	advance := func(s State) {
		res.State = s
		res.Trail = append(res.Trail, s)
		i.log.Debug("import_state", "file", path, "state", s.String())
	}

	advance(DuplicateCheck)
	// 摘要与提取使用同一份字节
	data, err := os.ReadFile(path)
	if err != nil {
		i.log.Warn("file_read_error", "file", path, "err", err)
		advance(Skipped)
		metrics.FilesTotal.WithLabelValues("skipped").Inc()
		return res, nil
	}
	hash := recording.HashBytes(data)
	res.Hash = hash
	exists, err := i.st.FileExists(ctx, hash)
	if err != nil {
		metrics.FilesTotal.WithLabelValues("failed").Inc()
		return res, fmt.Errorf("duplicate check: %w", err)
	}
	if exists {
		advance(AlreadyImported)
		i.log.Info("file_already_imported", "file", path, "hash", hash)
		metrics.FilesTotal.WithLabelValues("already_imported").Inc()
		return res, nil
	}

	advance(Extracting)
	ex := i.ex.ExtractBytes(ctx, path, data, i.opts.Extract)
	if ex.Empty() {
		i.log.Warn("file_skipped", "file", path, "reason", "no timestamps or unparsable")
		advance(Skipped)
		metrics.FilesTotal.WithLabelValues("skipped").Inc()
		return res, nil
	}

	if err := i.persist(ctx, userID, path, ex, &res, advance); err != nil {
		metrics.FilesTotal.WithLabelValues("failed").Inc()
		if errors.Is(err, store.ErrDuplicateFile) {
			i.log.Error("file_already_entered", "file", path, "hash", hash)
		} else {
			i.log.Error("file_persist_error", "file", path, "err", err)
		}
		return res, err
	}
	metrics.FilesTotal.WithLabelValues("committed").Inc()
	i.log.Info("file_imported", "file", path, "points", res.Points, "duplicates", res.Duplicates,
		"lines", res.Lines, "waypoints", res.Waypoints)
	return res, nil
}

// persist：分段登记与全部写入位于同一事务；任何错误回滚整个文件
func (i *Importer) persist(ctx context.Context, userID int64, path string, ex extract.Result, res *FileResult, advance func(State)) error {
	start := i.now()
	advance(SegmentRegistration)
	tx, err := i.st.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	segIDs, err := NewSegmentRegistry(tx).Register(ctx, ex.Segments)
	if err != nil {
		return err
	}

	advance(Persisting)
	fileID, err := tx.InsertFile(ctx, model.FileRecord{
		Filename:    filepath.Base(path),
		ContentHash: res.Hash,
		IngestedAt:  start,
		FirstTS:     ex.FirstTS,
		LastTS:      ex.LastTS,
		UserID:      userID,
	})
	if err != nil {
		return err
	}

	var points, dups, lines, wps int
	for _, p := range ex.Points {
		segID, ok := segIDs[p.Segment]
		if !ok {
			return fmt.Errorf("segment %s not registered", p.Segment)
		}
		inserted, err := tx.InsertPoint(ctx, p, segID, fileID, userID)
		if err != nil {
			return err
		}
		if !inserted {
			dups++
			i.log.Warn("point_duplicate_skipped", "file", path, "ts", p.Time.UTC().Format(time.RFC3339))
			continue
		}
		points++
	}
	for _, l := range ex.Lines {
		segID, ok := segIDs[l.Segment]
		if !ok {
			return fmt.Errorf("segment %s not registered", l.Segment)
		}
		if err := tx.InsertLine(ctx, l, segID, fileID, userID); err != nil {
			return err
		}
		lines++
	}
	for _, w := range ex.Waypoints {
		if err := tx.InsertWaypoint(ctx, w, fileID, userID); err != nil {
			return err
		}
		wps++
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	advance(Committed)
	res.Segments, res.Points, res.Duplicates, res.Lines, res.Waypoints = len(segIDs), points, dups, lines, wps

	metrics.PointsInsertedTotal.Add(float64(res.Points))
	metrics.PointDuplicatesTotal.Add(float64(res.Duplicates))
	metrics.LinesInsertedTotal.Add(float64(res.Lines))
	metrics.WaypointsInsertedTotal.Add(float64(res.Waypoints))
	metrics.FilePersistDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	return nil
}
