package runtime

import (
	"chat-session/domain"
	"chat-session/protocol"
	"context"
	"fmt"
)

// GetTranscript fetches one page of history. The page is merged into the
// transcript exactly like live items and also returned to the caller.
func (o *Orchestrator) GetTranscript(ctx context.Context, req domain.TranscriptRequest) (domain.TranscriptResponse, error) {
	resp, _, err := o.fetchAndMerge(ctx, o.withRequestDefaults(req), o.epoch.Load())
	return resp, err
}

func (o *Orchestrator) withRequestDefaults(req domain.TranscriptRequest) domain.TranscriptRequest {
	if req.ScanDirection == "" {
		req.ScanDirection = domain.ScanBackward
	}
	if req.SortOrder == "" {
		req.SortOrder = domain.SortAscending
	}
	if req.MaxResults <= 0 {
		req.MaxResults = o.opts.TranscriptPageSize
	}
	return req
}

// fetchAndMerge requests a page and merges it on the loop unless the session
// was reset or suspended meanwhile. lastKnown reports whether the last item of
// the page was already in the transcript before the merge.
func (o *Orchestrator) fetchAndMerge(ctx context.Context, req domain.TranscriptRequest, epoch uint64) (domain.TranscriptResponse, bool, error) {
	token, err := o.connectionToken()
	if err != nil {
		return domain.TranscriptResponse{}, false, err
	}
	page, err := o.service.GetTranscript(ctx, token, req)
	o.metrics.APICall("getTranscript", err)
	if err != nil {
		return domain.TranscriptResponse{}, false, fmt.Errorf("get transcript: %w", err)
	}

	items, decodeErrs := protocol.DecodeHistory(page.Items)
	for _, decodeErr := range decodeErrs {
		o.log.Warn("Dropping transcript item", "error", decodeErr)
	}
	resp := domain.TranscriptResponse{
		InitialContactID: page.InitialContactID,
		NextToken:        page.NextToken,
		Items:            items,
	}

	lastKnown := false
	stale := false
	err = o.loop.Do(ctx, func() {
		if epoch != o.epoch.Load() {
			stale = true
			return
		}
		if len(items) > 0 {
			lastKnown = o.store.Contains(items[len(items)-1].ID)
		}
		o.mergePage(items)
	})
	if err != nil {
		return resp, false, err
	}
	if stale {
		o.log.Debug("Session changed while fetching transcript, page not merged")
		return resp, true, nil
	}
	return resp, lastKnown, nil
}

// loadTranscript fetches the newest page after the first connection.
func (o *Orchestrator) loadTranscript(epoch uint64) {
	if _, _, err := o.fetchAndMerge(o.ctx, o.withRequestDefaults(domain.DefaultTranscriptRequest()), epoch); err != nil {
		o.log.Warn("Initial transcript not loaded", "error", err)
	}
}

// backfillCursor is the newest entry the service knows about: failed and
// still-sending messages only exist locally. Must run on the loop.
func (o *Orchestrator) backfillCursor() string {
	last, ok := o.store.Last(func(item domain.TranscriptItem) bool {
		if item.IsMessage() {
			return item.Message.Status != domain.StatusFailed && item.Message.Status != domain.StatusSending
		}
		return item.ID != chatEndedEventID
	})
	if !ok {
		return ""
	}
	return last.ID
}

// backfill closes the gap left by a disconnection, paging forward from cursor.
// It stops when a page ends on an item already known, since a stale cursor
// would otherwise return the same pages forever.
func (o *Orchestrator) backfill(epoch uint64, cursor string) {
	if cursor == "" {
		o.loadTranscript(epoch)
		return
	}
	req := domain.TranscriptRequest{
		ScanDirection:   domain.ScanForward,
		SortOrder:       domain.SortAscending,
		MaxResults:      o.opts.TranscriptPageSize,
		StartPositionID: cursor,
	}
	for pages := 1; ; pages++ {
		resp, lastKnown, err := o.fetchAndMerge(o.ctx, req, epoch)
		if err != nil {
			o.log.Warn("Backfill interrupted", "page", pages, "error", err)
			return
		}
		if resp.NextToken == "" || lastKnown || len(resp.Items) == 0 {
			o.log.Debug("Backfill complete", "pages", pages)
			return
		}
		req.StartPositionID = resp.Items[len(resp.Items)-1].ID
	}
}
