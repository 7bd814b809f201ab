package decide

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/loomchat/loom/internal/types"
	"google.golang.org/genai"
)

// Gemini proposes decisions via the Gemini API in JSON response mode.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed provider. apiKey is required.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Enabled reports true; callers still treat every call as fallible.
func (g *Gemini) Enabled() bool { return true }

type assignmentWire struct {
	Action     string  `json:"action"`
	ThreadGUID string  `json:"thread_guid"`
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// DecideAssignment asks the model whether the message belongs to one of
// the offered candidates or should start a new thread.
func (g *Gemini) DecideAssignment(ctx context.Context, msg types.Message, candidates []types.Candidate) (types.AssignmentDecision, error) {
	var prompt strings.Builder
	prompt.WriteString("You organize a chat stream into discussion threads.\n")
	prompt.WriteString("Decide whether the new message continues one of the candidate threads or starts a new topic.\n")
	prompt.WriteString(`Respond with JSON: {"action":"assign"|"create","thread_guid":"<candidate guid if assign>","title":"<short title if create>","confidence":<0..1>,"reason":"<one sentence>"}`)
	prompt.WriteString("\n\nNew message:\n")
	prompt.WriteString(msg.Content)
	prompt.WriteString("\n\nCandidate threads (most recent first):\n")
	writeCandidates(&prompt, candidates)

	var wire assignmentWire
	if err := g.generateJSON(ctx, "assignment", prompt.String(), &wire); err != nil {
		return types.AssignmentDecision{}, err
	}

	return types.AssignmentDecision{
		Action:     types.AssignmentAction(wire.Action),
		ThreadGUID: wire.ThreadGUID,
		Title:      wire.Title,
		Confidence: clampConfidence(wire.Confidence),
		Reason:     wire.Reason,
	}, nil
}

type revivalWire struct {
	ArchivedThreadGUID string  `json:"archived_thread_guid"`
	Confidence         float64 `json:"confidence"`
}

// DecideRevival asks the model whether the message continues one of the
// offered archived threads.
func (g *Gemini) DecideRevival(ctx context.Context, msg types.Message, archived []types.Candidate) (types.RevivalDecision, error) {
	var prompt strings.Builder
	prompt.WriteString("A new chat message starts a topic no live thread covers.\n")
	prompt.WriteString("Decide whether it continues one of these archived threads.\n")
	prompt.WriteString(`Respond with JSON: {"archived_thread_guid":"<guid or empty>","confidence":<0..1>}`)
	prompt.WriteString("\n\nNew message:\n")
	prompt.WriteString(msg.Content)
	prompt.WriteString("\n\nArchived threads (most recent first):\n")
	writeCandidates(&prompt, archived)

	var wire revivalWire
	if err := g.generateJSON(ctx, "revival", prompt.String(), &wire); err != nil {
		return types.RevivalDecision{}, err
	}

	return types.RevivalDecision{
		ArchivedThreadGUID: wire.ArchivedThreadGUID,
		Confidence:         clampConfidence(wire.Confidence),
	}, nil
}

type mergeWire struct {
	ShouldMerge bool    `json:"should_merge"`
	SourceGUID  string  `json:"source_guid"`
	TargetGUID  string  `json:"target_guid"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}

// DecideMerge asks the model whether two live threads are duplicate
// discussions and which should survive.
func (g *Gemini) DecideMerge(ctx context.Context, source, target types.Candidate) (types.MergeDecision, error) {
	var prompt strings.Builder
	prompt.WriteString("Two live discussion threads look like duplicates.\n")
	prompt.WriteString("Decide whether they should merge, and which survives (the target).\n")
	prompt.WriteString(`Respond with JSON: {"should_merge":<bool>,"source_guid":"<thread merged away>","target_guid":"<surviving thread>","confidence":<0..1>,"reason":"<one sentence>"}`)
	prompt.WriteString("\n\nThread A:\n")
	writeCandidates(&prompt, []types.Candidate{source})
	prompt.WriteString("\nThread B:\n")
	writeCandidates(&prompt, []types.Candidate{target})

	var wire mergeWire
	if err := g.generateJSON(ctx, "merge", prompt.String(), &wire); err != nil {
		return types.MergeDecision{}, err
	}

	return types.MergeDecision{
		ShouldMerge: wire.ShouldMerge,
		SourceGUID:  wire.SourceGUID,
		TargetGUID:  wire.TargetGUID,
		Confidence:  clampConfidence(wire.Confidence),
		Reason:      wire.Reason,
	}, nil
}

func writeCandidates(prompt *strings.Builder, candidates []types.Candidate) {
	for _, cand := range candidates {
		lastActive := "never"
		if cand.Thread.LastMessageAt != nil {
			lastActive = time.UnixMilli(*cand.Thread.LastMessageAt).UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(prompt, "- guid=%s title=%q last_active=%s\n", cand.Thread.GUID, cand.Thread.Title, lastActive)
		for _, line := range cand.Excerpt {
			fmt.Fprintf(prompt, "    %s\n", line)
		}
	}
}

func (g *Gemini) generateJSON(ctx context.Context, op, prompt string, out any) error {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return &ProviderError{Op: op, Err: err}
	}

	text := resp.Text()
	if text == "" {
		return &ProviderError{Op: op, Err: fmt.Errorf("empty response")}
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &ProviderError{Op: op, Err: fmt.Errorf("parse response: %w", err)}
	}
	return nil
}
