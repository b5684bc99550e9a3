// File: internal/usecase/mailbox_uc.go
package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/adapter"
	"course-enrollment/internal/domain/ports/repository"
	"course-enrollment/internal/infra/logging"
	"course-enrollment/internal/infra/metrics"
)

// Compile-time check
var _ MailboxUseCase = (*mailboxUC)(nil)

var activationCodePattern = regexp.MustCompile(`\bSW-[A-Z0-9]{8}\b`)

const mailboxLockTTL = 2 * time.Minute

// Skip reasons reported for deliveries that did no work.
const (
	SkipEmptyCheckpoint = "empty_checkpoint"
	SkipNoBaseline      = "no_baseline"
	SkipStale           = "stale_checkpoint"
	SkipHistoryExpired  = "history_expired"
)

type MailboxUseCase interface {
	// VerifySecret compares the webhook shared secret in constant time.
	VerifySecret(got string) bool
	// HandleNotification processes the mailbox delta announced by one webhook
	// delivery and advances the stored checkpoint.
	HandleNotification(ctx context.Context, n model.MailNotification) (*IngestReport, error)
}

// CodeActivator is the part of the activation engine the ingestor drives.
type CodeActivator interface {
	ActivateByCode(ctx context.Context, code string, evidence *string) (bool, error)
}

// MailboxOptions is the ingestor configuration. Each ingestor owns its own
// copy so several can coexist in one process.
type MailboxOptions struct {
	WebhookSecret  string
	ProviderFilter string
	MaxMessages    int
	SeenCacheSize  int
}

// IngestReport summarizes one delivery.
type IngestReport struct {
	Skipped            string
	Listed             int
	Scanned            int
	Matched            int
	Activated          int
	CheckpointAdvanced bool
}

type mailboxUC struct {
	checkpoints repository.MailboxCheckpointRepository
	mailbox     adapter.MailboxClient
	activator   CodeActivator
	locker      adapter.Locker
	seen        *lru.Cache[string, struct{}]
	opts        MailboxOptions
	log         *zerolog.Logger
}

func NewMailboxUseCase(
	checkpoints repository.MailboxCheckpointRepository,
	mailbox adapter.MailboxClient,
	activator CodeActivator,
	locker adapter.Locker,
	opts MailboxOptions,
	logger *zerolog.Logger,
) *mailboxUC {
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 20
	}
	if strings.TrimSpace(opts.ProviderFilter) == "" {
		opts.ProviderFilter = "Boosty"
	}
	if opts.SeenCacheSize <= 0 {
		opts.SeenCacheSize = 1024
	}
	seen, _ := lru.New[string, struct{}](opts.SeenCacheSize)
	return &mailboxUC{
		checkpoints: checkpoints,
		mailbox:     mailbox,
		activator:   activator,
		locker:      locker,
		seen:        seen,
		opts:        opts,
		log:         logging.OrNop(logger),
	}
}

func (u *mailboxUC) VerifySecret(got string) bool {
	want := u.opts.WebhookSecret
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (u *mailboxUC) HandleNotification(ctx context.Context, n model.MailNotification) (*IngestReport, error) {
	defer logging.TraceDuration(u.log, "MailboxUC.HandleNotification")()
	start := time.Now()
	defer func() { metrics.ObserveMailboxDelivery(time.Since(start).Seconds()) }()

	report, err := u.handle(ctx, n)
	switch {
	case err != nil:
		metrics.IncMailboxDelivery("error")
	case report.Skipped != "":
		metrics.IncMailboxDelivery(report.Skipped)
	default:
		metrics.IncMailboxDelivery("processed")
	}
	return report, err
}

func (u *mailboxUC) handle(ctx context.Context, n model.MailNotification) (*IngestReport, error) {
	report := &IngestReport{}
	next := strings.TrimSpace(n.CheckpointID)
	if next == "" {
		report.Skipped = SkipEmptyCheckpoint
		return report, nil
	}
	if u.mailbox == nil {
		return report, domain.ErrMailboxNotConfigured
	}

	cp, err := u.checkpoints.Get(ctx, repository.NoTX)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return report, err
	}
	if !cp.HasBaseline() {
		u.log.Info().Str("history_id", next).Msg("mailbox has no baseline checkpoint, skipping delivery")
		report.Skipped = SkipNoBaseline
		return report, nil
	}
	if !model.CheckpointAdvances(cp.LastHistoryID, next) {
		u.log.Debug().Str("stored", cp.LastHistoryID).Str("history_id", next).Msg("stale mailbox notification")
		report.Skipped = SkipStale
		return report, nil
	}

	// Overlapping deliveries are tolerated; the lock only narrows the window.
	if u.locker != nil {
		key := "lock:mailbox:" + strings.ToLower(strings.TrimSpace(n.MailboxAddress))
		token, lerr := u.locker.TryLock(ctx, key, mailboxLockTTL)
		if lerr == nil {
			defer func() {
				if err := u.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					u.log.Warn().Err(err).Msg("mailbox lock release failed")
				}
			}()
		} else {
			u.log.Debug().Err(lerr).Msg("mailbox lock not acquired, proceeding")
		}
	}

	ids, err := u.mailbox.ListHistory(ctx, cp.LastHistoryID)
	if errors.Is(err, domain.ErrHistoryExpired) {
		// Nothing before next can be listed any more; resume from next so
		// later deliveries are not stuck on the expired baseline.
		u.log.Warn().Str("stored", cp.LastHistoryID).Str("history_id", next).Msg("mailbox history expired, rebasing checkpoint")
		advanced, aerr := u.checkpoints.AdvanceHistoryID(ctx, repository.NoTX, next)
		if aerr != nil {
			return report, aerr
		}
		report.CheckpointAdvanced = advanced
		report.Skipped = SkipHistoryExpired
		return report, nil
	}
	if err != nil {
		return report, err
	}
	report.Listed = len(ids)

	for _, id := range ids {
		if report.Scanned >= u.opts.MaxMessages {
			u.log.Info().Int("listed", len(ids)).Int("max", u.opts.MaxMessages).Msg("mailbox delta truncated")
			break
		}
		if u.seen.Contains(id) {
			metrics.IncMailboxMessage("cached")
			continue
		}
		report.Scanned++

		msg, err := u.mailbox.GetMessage(ctx, id)
		if err != nil {
			metrics.IncMailboxMessage("fetch_error")
			u.log.Warn().Err(err).Str("message_id", id).Msg("mailbox message fetch failed, skipping")
			continue
		}
		if !u.fromProvider(msg) {
			metrics.IncMailboxMessage("filtered")
			u.seen.Add(id, struct{}{})
			continue
		}
		codes := ExtractActivationCodes(messageText(msg))
		if len(codes) == 0 {
			metrics.IncMailboxMessage("no_code")
			u.seen.Add(id, struct{}{})
			continue
		}
		metrics.IncMailboxMessage("matched")
		report.Matched++

		evidence := BuildEvidence(msg.ID, n.MailboxAddress, next, msg.Header("Subject"))
		for _, code := range codes {
			ok, err := u.activator.ActivateByCode(ctx, code, &evidence)
			if err != nil {
				// The checkpoint stays put so a redelivery retries this delta.
				return report, err
			}
			if ok {
				report.Activated++
			}
		}
		u.seen.Add(id, struct{}{})
	}

	advanced, err := u.checkpoints.AdvanceHistoryID(ctx, repository.NoTX, next)
	if err != nil {
		return report, err
	}
	report.CheckpointAdvanced = advanced

	u.log.Info().
		Str("history_id", next).
		Int("listed", report.Listed).
		Int("scanned", report.Scanned).
		Int("matched", report.Matched).
		Int("activated", report.Activated).
		Bool("advanced", advanced).
		Msg("mailbox delivery processed")
	return report, nil
}

func (u *mailboxUC) fromProvider(m *model.MailMessage) bool {
	needle := strings.ToLower(u.opts.ProviderFilter)
	return strings.Contains(strings.ToLower(m.Header("From")), needle) ||
		strings.Contains(strings.ToLower(m.Header("Subject")), needle)
}

func messageText(m *model.MailMessage) string {
	if strings.TrimSpace(m.BodyText) != "" {
		return m.BodyText
	}
	return m.Snippet
}

// ExtractActivationCodes returns the distinct codes in text, sorted.
func ExtractActivationCodes(text string) []string {
	found := activationCodePattern.FindAllString(strings.ToUpper(text), -1)
	if len(found) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(found))
	for _, c := range found {
		set[c] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// BuildEvidence renders the audit string stored on the payment.
func BuildEvidence(messageID, mailbox, historyID, subject string) string {
	dash := func(s string) string {
		s = strings.TrimSpace(s)
		if s == "" {
			return "-"
		}
		return s
	}
	return "gmail_message_id=" + messageID +
		";email_address=" + dash(mailbox) +
		";history_id=" + historyID +
		";subject=" + dash(subject)
}
