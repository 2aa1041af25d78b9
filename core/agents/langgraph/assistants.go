package langgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/jinzhu/copier"
	"golang.org/x/sync/errgroup"
)

const (
	assistantsPageSize      = 100
	assistantDetailsWorkers = 8
)

type Assistant struct {
	AssistantID string         `json:"assistant_id"`
	GraphID     string         `json:"graph_id,omitempty"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	DisplayName string         `json:"display_name"`
}

type ListAssistantsOptions struct {
	// DisplayNames overrides the display name by assistant or graph id.
	DisplayNames map[string]string
	// Exclude drops assistants whose assistant or graph id is listed.
	Exclude []string
}

// ListAssistants lists the assistants the runtime serves. Servers that do
// not answer GET /assistants are asked through POST /assistants/search.
// Each assistant is then enriched with its details, a failed detail lookup
// keeps the listing entry as is.
func (c *Client) ListAssistants(ctx context.Context, opts ListAssistantsOptions) ([]Assistant, error) {
	ctx, span := tracer.Start(ctx, "list assistants")
	defer span.End()

	var raw json.RawMessage
	query := url.Values{"limit": {strconv.Itoa(assistantsPageSize)}}
	err := c.doJSON(ctx, "list assistants", http.MethodGet, "/assistants?"+query.Encode(), nil, &raw)
	items := assistantEntries(raw)
	if err != nil || len(items) == 0 {
		if err != nil {
			logger.Warn("GET /assistants failed, falling back to search", "error", err)
		}

		raw = nil
		searchErr := c.doJSON(ctx, "search assistants", http.MethodPost, "/assistants/search", map[string]any{
			"metadata": map[string]any{},
			"limit":    assistantsPageSize,
			"offset":   0,
		}, &raw)
		if searchErr != nil {
			span.RecordError(searchErr)
			if err != nil {
				return nil, searchErr
			}
			logger.Warn("POST /assistants/search failed", "error", searchErr)
		}
		items = assistantEntries(raw)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(assistantDetailsWorkers)
	for i := range items {
		g.Go(func() error {
			c.enrichAssistant(gctx, &items[i])
			return nil
		})
	}
	_ = g.Wait()

	assistants := make([]Assistant, 0, len(items))
	for _, item := range items {
		if slices.Contains(opts.Exclude, item.AssistantID) ||
			(item.GraphID != "" && slices.Contains(opts.Exclude, item.GraphID)) {
			continue
		}
		item.DisplayName = displayName(item, opts.DisplayNames)
		assistants = append(assistants, item)
	}

	logger.Info("listed assistants", "count", len(assistants))
	return assistants, nil
}

func (c *Client) enrichAssistant(ctx context.Context, assistant *Assistant) {
	var details Assistant
	path := "/assistants/" + url.PathEscape(assistant.AssistantID)
	if err := c.doJSON(ctx, "get assistant", http.MethodGet, path, nil, &details); err != nil {
		logger.Debug("failed to get assistant details", "assistant_id", assistant.AssistantID, "error", err)
		return
	}

	// Details fill in what the listing left out, they never blank it.
	details.AssistantID, details.DisplayName = "", ""
	if err := copier.CopyWithOption(assistant, &details, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
		logger.Debug("failed to merge assistant details", "assistant_id", assistant.AssistantID, "error", err)
	}
}

// assistantEntries accepts a bare list, or a list wrapped in items, results
// or assistants. Entries are either objects or plain assistant ids.
func assistantEntries(raw json.RawMessage) []Assistant {
	if len(raw) == 0 {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		var wrapped struct {
			Items      []json.RawMessage `json:"items"`
			Results    []json.RawMessage `json:"results"`
			Assistants []json.RawMessage `json:"assistants"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil
		}
		switch {
		case len(wrapped.Items) > 0:
			list = wrapped.Items
		case len(wrapped.Results) > 0:
			list = wrapped.Results
		default:
			list = wrapped.Assistants
		}
	}

	var assistants []Assistant
	for _, entry := range list {
		var id string
		if err := json.Unmarshal(entry, &id); err == nil {
			if id != "" {
				assistants = append(assistants, Assistant{AssistantID: id})
			}
			continue
		}

		var fields struct {
			Assistant
			ID string `json:"id"`
		}
		if err := json.Unmarshal(entry, &fields); err != nil {
			continue
		}
		assistant := fields.Assistant
		if assistant.AssistantID == "" {
			assistant.AssistantID = fields.ID
		}
		if assistant.AssistantID == "" {
			assistant.AssistantID = fields.Name
		}
		if assistant.AssistantID != "" {
			assistants = append(assistants, assistant)
		}
	}
	return assistants
}

func displayName(assistant Assistant, overrides map[string]string) string {
	if name, ok := overrides[assistant.AssistantID]; ok && name != "" {
		return name
	}
	if name, ok := overrides[assistant.GraphID]; ok && name != "" && assistant.GraphID != "" {
		return name
	}
	if assistant.Name != "" {
		return assistant.Name
	}
	for _, key := range []string{"display_name", "friendly_name"} {
		if name, ok := assistant.Metadata[key].(string); ok && name != "" {
			return name
		}
	}
	if assistant.GraphID != "" {
		return assistant.GraphID
	}
	return assistant.AssistantID
}
