package rewriter

import (
	"context"
	"strings"
	"testing"

	"docrag/internal/adapter/llm"
)

func TestRewriteReturnsModelQuestion(t *testing.T) {
	model := llm.NewMockLLM("Who are the authors mentioned in this document?\n")
	r := NewLLM(model)

	out, err := r.Rewrite(context.Background(), "Show me authors")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Who are the authors mentioned in this document?" {
		t.Errorf("unexpected rewrite: %q", out)
	}
	if !strings.Contains(model.LastUserPrompt, "Show me authors") {
		t.Errorf("prompt must carry the original question, got %q", model.LastUserPrompt)
	}
	if model.Calls != 1 {
		t.Errorf("expected one model call, got %d", model.Calls)
	}
}

func TestRewriteModelFailure(t *testing.T) {
	model := llm.NewMockLLM("unused")
	model.FailFirst = 1
	r := NewLLM(model)

	if _, err := r.Rewrite(context.Background(), "Tell me more"); err == nil {
		t.Fatal("model failure must surface as an error")
	}
}

func TestRewriteEmptyResponse(t *testing.T) {
	r := NewLLM(llm.NewMockLLM("   "))

	if _, err := r.Rewrite(context.Background(), "Tell me more"); err == nil {
		t.Fatal("a blank rewrite must surface as an error")
	}
}
