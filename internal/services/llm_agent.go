package services

import (
	"context"
	"strings"

	"github.com/yungbote/bigocean-backend/internal/orchestrator"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/platform/openai"
)

type conversationAgent struct {
	log    *logger.Logger
	client openai.Client
}

func NewConversationAgent(log *logger.Logger, client openai.Client) orchestrator.ConversationAgent {
	return &conversationAgent{log: log.With("service", "ConversationAgent"), client: client}
}

func (a *conversationAgent) Invoke(ctx context.Context, req orchestrator.AgentRequest) (orchestrator.AgentReply, error) {
	instructions := conversationInstructions
	if req.SteeringHint != nil && strings.TrimSpace(*req.SteeringHint) != "" {
		instructions += "\n\n" + *req.SteeringHint
	}
	turns := make([]openai.Turn, 0, len(req.Messages))
	for _, m := range req.Messages {
		turns = append(turns, openai.Turn{Role: m.Role, Content: m.Content})
	}
	out, err := a.client.GenerateText(ctx, instructions, turns)
	if err != nil {
		return orchestrator.AgentReply{}, err
	}
	return orchestrator.AgentReply{
		Text: out.Text,
		Usage: orchestrator.TokenUsage{
			InputTokens:  out.Usage.InputTokens,
			OutputTokens: out.Usage.OutputTokens,
		},
	}, nil
}
