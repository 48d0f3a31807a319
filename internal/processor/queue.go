package processor

import (
	"context"
	"fmt"

	"github.com/nguyentantai21042004/chapter-flow/internal/jobs"
)

// complete sends one prompt through the single-flight generation queue
func (p *implProcessor) complete(ctx context.Context, prompt, model string) (string, error) {
	h, err := p.queue.Enqueue(ctx, func(ctx context.Context) (string, error) {
		return p.completer.Complete(ctx, prompt, model)
	})
	if err != nil {
		return "", err
	}

	if jobID := jobs.IDFromContext(ctx); jobID != "" {
		p.waiting.Store(h.ID, jobID)
		defer p.waiting.Delete(h.ID)
		if pos := h.Position(); pos > 0 {
			p.publishQueued(jobID, pos)
		}
	}
	return h.Wait(ctx)
}

func (p *implProcessor) publishPosition(handleID string, position int) {
	jobID, ok := p.waiting.Load(handleID)
	if !ok {
		return
	}
	p.publishQueued(jobID.(string), position)
}

func (p *implProcessor) publishQueued(jobID string, position int) {
	msg := "generating"
	if position > 0 {
		msg = fmt.Sprintf("waiting for model, position %d", position)
	}
	p.registry.Bus().Publish(jobs.Event{JobID: jobID, Phase: jobs.PhaseQueued, Message: msg})
}

func (p *implProcessor) publish(ctx context.Context, phase, message string) {
	jobID := jobs.IDFromContext(ctx)
	if jobID == "" {
		return
	}
	p.registry.Bus().Publish(jobs.Event{
		JobID:     jobID,
		Phase:     phase,
		Message:   message,
		ItemIndex: itemIndex(ctx),
	})
}

type itemKey struct{}

func withItemIndex(ctx context.Context, i int) context.Context {
	return context.WithValue(ctx, itemKey{}, i)
}

func itemIndex(ctx context.Context) *int {
	i, ok := ctx.Value(itemKey{}).(int)
	if !ok {
		return nil
	}
	return &i
}
