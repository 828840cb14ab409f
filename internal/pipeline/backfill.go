package pipeline

import (
	"context"

	"go.uber.org/zap"

	"newsharvester/internal/classify"
)

// BackfillTopics labels stored articles that have no topic yet. Runs in
// batches until the table is exhausted or ctx is canceled.
func (p *Pipeline) BackfillTopics(ctx context.Context) (int, error) {
	const batchSize = 500

	labeled := 0
	for {
		if ctx.Err() != nil {
			return labeled, ctx.Err()
		}
		articles, err := p.store.ArticlesWithoutTopic(batchSize)
		if err != nil {
			return labeled, err
		}
		if len(articles) == 0 {
			break
		}
		for _, a := range articles {
			title, body := "", ""
			if a.Title != nil {
				title = *a.Title
			}
			if a.Content != nil {
				body = *a.Content
			}
			topic := classify.Classify(a.Portal, a.URL, title, body)
			if err := p.store.UpdateTopic(a.ID, topic); err != nil {
				return labeled, err
			}
			labeled++
		}
		if len(articles) < batchSize {
			break
		}
	}

	p.logger.Info("topic backfill finished", zap.Int("labeled", labeled))
	return labeled, nil
}
