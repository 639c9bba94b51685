package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quilldesk/helpdesk/internal/config"
	"github.com/quilldesk/helpdesk/internal/domain"
	apperrors "github.com/quilldesk/helpdesk/pkg/util/errorutil"
)

// GeminiClassifier calls the hosted Gemini REST API with a JSON response
// schema matching domain.TicketAnalysis.
type GeminiClassifier struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewGeminiClassifier builds the classifier. A missing API key is a
// configuration error; callers skip orchestration with a warning.
func NewGeminiClassifier(cfg config.GeminiConfig) (*GeminiClassifier, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewConfigurationError("GEMINI_API_KEY is not set")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &GeminiClassifier{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Analyze sends the ticket context to the model and decodes its JSON
// decision. Any transport or decode failure is an external-service
// error; the orchestrator fails closed on it.
func (g *GeminiClassifier) Analyze(ctx context.Context, req AnalyzeRequest) (*domain.TicketAnalysis, error) {
	body, err := json.Marshal(generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: buildSystemInstruction(req)}}},
		Contents: []content{{
			Role: "user",
			Parts: []part{{Text: fmt.Sprintf(
				"Ticket Subject: %s\nInitial Description: %s\n\nPlease analyze the latest state of this ticket.",
				req.Subject, req.Description,
			)}},
		}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("classifier", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("classifier", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewExternalServiceError("classifier",
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200)))
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, apperrors.NewExternalServiceError("classifier", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil, apperrors.NewExternalServiceError("classifier", fmt.Errorf("empty response"))
	}

	var analysis domain.TicketAnalysis
	text := decoded.Candidates[0].Content.Parts[0].Text
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, apperrors.NewExternalServiceError("classifier",
			fmt.Errorf("malformed decision payload: %w", err))
	}
	return &analysis, nil
}

func buildSystemInstruction(req AnalyzeRequest) string {
	var b strings.Builder

	b.WriteString("You are a helpdesk orchestrator. Your job is to analyze incoming tickets and route them to the correct team with the appropriate priority.\n\n")
	b.WriteString("INTERACTIVE CHAT MODE:\n")
	b.WriteString("If the user's request is ambiguous or lacks critical information, you should ask a clarifying question instead of just assigning it.\n\n")
	b.WriteString("Your goals:\n")
	b.WriteString("1. Resolve the ticket immediately if a solution is found in the Knowledge Base or past tickets.\n")
	b.WriteString("2. Ask clarifying questions if more information is needed to help a human agent or to find a solution.\n")
	b.WriteString("3. Assign to the correct team and priority once enough information is available.\n\n")

	b.WriteString("Available Teams and their responsibilities:\n")
	for _, team := range req.Teams {
		fmt.Fprintf(&b, "- %s: %s\n", team.Name, team.Description)
	}
	fmt.Fprintf(&b, "\nAvailable Priorities: %s\n", strings.Join(req.Priorities, ", "))

	if len(req.KBArticles) > 0 {
		b.WriteString("\nRelevant Knowledge Base Articles:\n")
		for _, article := range req.KBArticles {
			fmt.Fprintf(&b, "Title: %s\nContent: %s\n", article.Title, article.Content)
		}
	}
	if len(req.ResolvedTickets) > 0 {
		b.WriteString("\nSimilar Resolved Tickets:\n")
		for _, t := range req.ResolvedTickets {
			fmt.Fprintf(&b, "Subject: %s\nResolution: %s\n", t.Subject, t.Resolution)
		}
	}
	if len(req.History) > 0 {
		b.WriteString("\nConversation History:\n")
		for _, h := range req.History {
			fmt.Fprintf(&b, "%s: %s\n", h.Direction, h.Body)
		}
	}

	b.WriteString("\nAlways respond with a valid JSON object containing:\n")
	b.WriteString("- 'team': The assigned team (use 'Level 1 Support' if unsure).\n")
	b.WriteString("- 'priority': The assigned priority.\n")
	b.WriteString("- 'reason': Brief explanation for the assignment or action.\n")
	b.WriteString("- 'suggested_resolution': A potential solution if one is found.\n")
	b.WriteString("- 'can_resolve': Boolean, true if the suggested_resolution fully solves the issue.\n")
	b.WriteString("- 'needs_more_info': Boolean, true if you need to ask the customer a clarifying question.\n")
	b.WriteString("- 'clarifying_question': The question to ask the customer if needs_more_info is true.\n")

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
