package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/keystat/keystat/archivist"
	"github.com/keystat/keystat/composer"
	"github.com/keystat/keystat/internal/utils"
	"github.com/keystat/keystat/pkg/errlvl"
	"github.com/keystat/keystat/scavenger/ecos"
	"golang.org/x/sync/errgroup"
)

// DefaultCycleTimeout bounds a whole fetch-to-publish cycle.
const DefaultCycleTimeout = 30 * time.Second

type statisticsFetcher interface {
	Fetch(ctx context.Context) (*ecos.Payload, error)
}

type indicatorExtractor interface {
	Filter(p *ecos.Payload) (composer.Indicators, error)
}

// Publisher publishes a post to one platform.
type Publisher interface {
	Name() string
	MaxLength() (int, composer.LengthFunc)
	Publish(ctx context.Context, text string) (string, error)
}

// indicatorIgnorer is implemented by composers whose post does not depend on the indicators.
type indicatorIgnorer interface {
	IgnoresIndicators() bool
}

type postArchive interface {
	Create(ctx context.Context, p *archivist.Post) error
	FindLatest(ctx context.Context, platform string) (*archivist.Post, error)
}

// IndicatorJob fetches the key statistics, composes a post and publishes it.
type IndicatorJob struct {
	fetcher   statisticsFetcher     // fetcher of the ECOS key statistics
	extractor indicatorExtractor    // extractor that keeps allow-listed indicators
	composer  composer.PostComposer // composer of the post body
	publisher Publisher             // primary platform, its failure fails the cycle
	mirrors   []Publisher           // secondary platforms, their failures are only logged
	archive   postArchive           // archive of published posts (optional)
	logger    *slog.Logger          // special logger for the job
	options   *IndicatorJobOptions  // job options
}

// IndicatorJobOptions holds job options needed for the job execution.
type IndicatorJobOptions struct {
	timeout        time.Duration // deadline of a single cycle
	shouldPublish  bool          // if true, will publish the post. Else: will just print it (for development)
	skipDuplicates bool          // if true, will not publish a text equal to the latest archived post. Note: requires an archive
	out            io.Writer     // where unpublished posts are printed
}

// NewIndicatorJob creates a new IndicatorJob instance.
func NewIndicatorJob(
	fetcher statisticsFetcher,
	extractor indicatorExtractor,
	postComposer composer.PostComposer,
	publisher Publisher,
) *IndicatorJob {
	return &IndicatorJob{
		fetcher:   fetcher,
		extractor: extractor,
		composer:  postComposer,
		publisher: publisher,
		logger:    slog.Default(),
		options: &IndicatorJobOptions{
			timeout: DefaultCycleTimeout,
			out:     os.Stdout,
		},
	}
}

// WithMirrors adds publishers that receive the post after the primary publisher succeeded.
func (job *IndicatorJob) WithMirrors(mirrors ...Publisher) *IndicatorJob {
	job.mirrors = append(job.mirrors, mirrors...)
	return job
}

// WithArchive sets the archive that records every published post.
func (job *IndicatorJob) WithArchive(archive postArchive) *IndicatorJob {
	job.archive = archive
	return job
}

// WithLogger replaces the default logger.
func (job *IndicatorJob) WithLogger(logger *slog.Logger) *IndicatorJob {
	job.logger = logger
	return job
}

// Timeout sets the deadline of a single cycle.
func (job *IndicatorJob) Timeout(d time.Duration) *IndicatorJob {
	if d > 0 {
		job.options.timeout = d
	}
	return job
}

// Publish sets the flag that will publish the post. Else: will just print it to out (for development).
func (job *IndicatorJob) Publish() *IndicatorJob {
	job.options.shouldPublish = true
	return job
}

// PrintTo sets where unpublished posts are printed.
func (job *IndicatorJob) PrintTo(out io.Writer) *IndicatorJob {
	job.options.out = out
	return job
}

// SkipDuplicates sets the flag that will skip publishing when the text equals the latest archived post.
func (job *IndicatorJob) SkipDuplicates() *IndicatorJob {
	job.options.skipDuplicates = true
	return job
}

// Run executes one pipeline cycle. Every stage failure aborts the cycle and is returned as *StageError.
func (job *IndicatorJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, job.options.timeout)
	defer cancel()

	// Sentry performance monitoring
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
		ctx = sentry.SetHubOnContext(ctx, hub)
	}

	tx := sentry.StartTransaction(ctx, "Job.IndicatorJob.Run")
	tx.Op = "job"
	ctx = tx.Context()

	defer func() {
		tx.Finish()
		hub.Flush(2 * time.Second)
	}()

	var indicators composer.Indicators
	if job.needsIndicators() {
		var err error
		indicators, err = job.collect(ctx, tx, hub)
		if err != nil {
			return err
		}
	} else {
		job.logger.Info("[IndicatorJob.Run] Composer does not use indicators, skipping fetch")
	}

	span := tx.StartChild("Compose")
	text, err := job.compose(indicators, job.publisher)
	span.Finish()
	if err != nil {
		return job.fail(hub, StageCompose, err)
	}

	if job.isDuplicate(ctx, hub, text) {
		job.logger.Info("[IndicatorJob.Run] Same text as the latest post, skipping", "platform", job.publisher.Name())
		utils.AddLeveledBreadcrumb(hub, "debug", "Duplicate post skipped", sentry.LevelDebug)
		return nil
	}

	if !job.options.shouldPublish {
		_, _ = fmt.Fprintln(job.options.out, text)
		job.logger.Info("[IndicatorJob.Run] Publishing is disabled, post printed")
		return nil
	}

	span = tx.StartChild("Publish")
	span.SetTag("platform", job.publisher.Name())
	id, err := job.publisher.Publish(ctx, text)
	span.Finish()
	if err != nil {
		return job.fail(hub, StagePublish, err)
	}
	job.logger.Info("[IndicatorJob.Run] Post published", "platform", job.publisher.Name(), "post_id", id)
	job.logger.Info("[IndicatorJob.Run] Published text:\n" + text)
	utils.AddBreadcrumb(hub, "successful", fmt.Sprintf("Publish returned post %s", id))

	posts := []*archivist.Post{job.newPost(job.publisher.Name(), id, text, indicators)}

	span = tx.StartChild("PublishMirrors")
	posts = append(posts, job.publishMirrors(ctx, hub, indicators)...)
	span.Finish()

	span = tx.StartChild("Archive")
	job.archivePosts(ctx, hub, posts)
	span.Finish()

	return nil
}

// needsIndicators reports whether the composer uses the fetched indicators.
func (job *IndicatorJob) needsIndicators() bool {
	c, ok := job.composer.(indicatorIgnorer)
	return !ok || !c.IgnoresIndicators()
}

// collect fetches the key statistics and keeps the allow-listed indicators.
func (job *IndicatorJob) collect(ctx context.Context, tx *sentry.Span, hub *sentry.Hub) (composer.Indicators, error) {
	span := tx.StartChild("Fetch")
	payload, err := job.fetcher.Fetch(ctx)
	span.Finish()
	if err != nil {
		return nil, job.fail(hub, StageFetch, err)
	}
	if payload != nil && payload.KeyStatisticList != nil {
		utils.AddBreadcrumb(hub, "successful", fmt.Sprintf("Fetch returned %d rows", len(payload.KeyStatisticList.Rows)))
	}

	span = tx.StartChild("Extract")
	indicators, err := job.extractor.Filter(payload)
	span.Finish()
	if err != nil {
		return nil, job.fail(hub, StageExtract, err)
	}
	utils.AddBreadcrumb(hub, "successful", fmt.Sprintf("Extract returned %d indicators", len(indicators)))

	return indicators, nil
}

// compose builds the post body and fits it into the publisher limit.
func (job *IndicatorJob) compose(indicators composer.Indicators, p Publisher) (string, error) {
	text := job.composer.Compose(indicators.Text())

	limit, length := p.MaxLength()
	fitted, dropped, err := composer.FitToLimit(text, limit, length)
	if err != nil {
		return "", fmt.Errorf("[composer.FitToLimit] %s: %w", p.Name(), err)
	}
	if dropped > 0 {
		job.logger.Warn("[IndicatorJob.compose] Post over the platform limit, lines dropped",
			"platform", p.Name(), "dropped", dropped, "limit", limit)
	}
	return fitted, nil
}

// isDuplicate reports whether text equals the latest archived post of the primary platform.
// A failing lookup is logged and treated as "not a duplicate".
func (job *IndicatorJob) isDuplicate(ctx context.Context, hub *sentry.Hub, text string) bool {
	if !job.options.skipDuplicates || job.archive == nil {
		return false
	}

	span := sentry.StartSpan(ctx, "Posts.FindLatest")
	latest, err := job.archive.FindLatest(ctx, job.publisher.Name())
	span.Finish()
	if err != nil {
		job.logger.Warn("[IndicatorJob.isDuplicate][Posts.FindLatest]", "error", err)
		utils.CaptureSentryException("jobIndicatorsFindLatestError", hub, err)
		return false
	}

	return latest != nil && latest.Hash == archivist.HashText(text)
}

// publishMirrors publishes the post to every mirror concurrently and returns the posts that went out.
func (job *IndicatorJob) publishMirrors(ctx context.Context, hub *sentry.Hub, indicators composer.Indicators) []*archivist.Post {
	if len(job.mirrors) == 0 {
		return nil
	}

	published := make([]*archivist.Post, len(job.mirrors))
	var g errgroup.Group
	for i, m := range job.mirrors {
		i, m := i, m
		g.Go(func() error {
			mirrorHub := hub.Clone()

			text, err := job.compose(indicators, m)
			if err == nil {
				var id string
				id, err = m.Publish(ctx, text)
				if err == nil {
					job.logger.Info("[IndicatorJob.publishMirrors] Post mirrored", "platform", m.Name(), "post_id", id)
					published[i] = job.newPost(m.Name(), id, text, indicators)
					return nil
				}
			}

			job.logger.Warn("[IndicatorJob.publishMirrors]", "platform", m.Name(), "error", err)
			utils.CaptureSentryException("jobIndicatorsMirrorError", mirrorHub, err)
			return nil
		})
	}
	_ = g.Wait()

	var posts []*archivist.Post
	for _, p := range published {
		if p != nil {
			posts = append(posts, p)
		}
	}
	return posts
}

// archivePosts stores published posts. The posts are already out, so failures are only logged.
func (job *IndicatorJob) archivePosts(ctx context.Context, hub *sentry.Hub, posts []*archivist.Post) {
	if job.archive == nil {
		return
	}

	for _, p := range posts {
		if err := job.archive.Create(ctx, p); err != nil {
			job.logger.Warn("[IndicatorJob.archivePosts][Posts.Create]", "platform", p.Platform, "error", err)
			utils.CaptureSentryException("jobIndicatorsArchiveError", hub, err)
		}
	}
}

func (job *IndicatorJob) newPost(platform, id, text string, indicators composer.Indicators) *archivist.Post {
	raw, err := json.Marshal(indicators)
	if err != nil {
		job.logger.Debug("[IndicatorJob.newPost][json.Marshal]", "error", err)
		raw = nil
	}
	return &archivist.Post{
		Hash:          archivist.HashText(text),
		Platform:      platform,
		PublicationID: id,
		Text:          text,
		Indicators:    raw,
		PublishedAt:   time.Now().UTC(),
	}
}

// fail logs and captures a stage failure and returns it as *StageError.
func (job *IndicatorJob) fail(hub *sentry.Hub, stage Stage, err error) error {
	e := &StageError{Stage: stage, Err: err}

	switch errlvl.Of(err) {
	case errlvl.DEBUG, errlvl.INFO:
		job.logger.Info(fmt.Sprintf("[IndicatorJob.%s]", stage), "error", err)
	case errlvl.WARN:
		job.logger.Warn(fmt.Sprintf("[IndicatorJob.%s]", stage), "error", err)
	default:
		job.logger.Error(fmt.Sprintf("[IndicatorJob.%s]", stage), "error", err)
	}
	utils.CaptureSentryException(fmt.Sprintf("jobIndicators%sError", stage), hub, e)

	return e
}
