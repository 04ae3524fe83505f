package generate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/draftly/draftly/internal/session"
	"github.com/draftly/draftly/internal/stream"
)

// RequestVariations generates variations of the current artifact's HTML.
//
// Unlike the N-artifact flow this is a single stream of named variants:
// fragments are fed through the incremental decoder and each complete
// {name, html} record is delivered to onVariant the moment its closing
// brace arrives, then collected into the returned slice. Records that fail
// to decode are skipped; a trailing partial record is discarded when the
// stream ends. Results target an ephemeral side panel, not the Store.
func (o *Orchestrator) RequestVariations(ctx context.Context, onVariant func(session.Variation)) ([]session.Variation, error) {
	artifact, sess, err := o.store.CurrentArtifact()
	if err != nil {
		return nil, err
	}
	if artifact.Status != session.StatusComplete || artifact.Content == "" {
		return nil, fmt.Errorf("%w: %s is %s", ErrArtifactNotReady, artifact.ID, artifact.Status)
	}

	var (
		dec      stream.Decoder
		variants []session.Variation
	)
	_, err = o.client.GenerateStream(ctx, variationsPrompt(sess.Prompt, artifact.Content),
		func(_ context.Context, fragment string) error {
			for _, raw := range dec.Feed(fragment) {
				var v session.Variation
				if err := json.Unmarshal(raw, &v); err != nil || v.HTML == "" {
					o.logger.Debug("skipping undecodable variant record")
					continue
				}
				v.HTML = stream.TrimFences(v.HTML)
				variants = append(variants, v)
				if onVariant != nil {
					onVariant(v)
				}
			}
			return nil
		})
	if err != nil {
		// Variants decoded before the failure are still useful.
		return variants, fmt.Errorf("variations stream: %w", err)
	}

	o.logger.Debug("variations finished", "count", len(variants), "artifact_id", artifact.ID)
	return variants, nil
}

// ApplyVariation replaces the current artifact's content with the chosen
// variation's HTML. Only settled artifacts can be rewritten; an artifact
// still streaming belongs to its generation task alone.
func (o *Orchestrator) ApplyVariation(html string) error {
	artifact, sess, err := o.store.CurrentArtifact()
	if err != nil {
		return err
	}
	if !artifact.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrArtifactNotReady, artifact.ID, artifact.Status)
	}
	return o.store.ApplyContent(sess.ID, artifact.ID, stream.TrimFences(html))
}
