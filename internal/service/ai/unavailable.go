package ai

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// unavailableModel stands in for a chat model that could not be built, so
// the construction error is reported by each generation instead of at startup.
type unavailableModel struct {
	err error
}

// NewUnavailableModel returns a model.ChatModel whose calls all fail with err.
func NewUnavailableModel(err error) model.ChatModel {
	return &unavailableModel{err: err}
}

func (m *unavailableModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return nil, m.err
}

func (m *unavailableModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, m.err
}

func (m *unavailableModel) BindTools(_ []*schema.ToolInfo) error {
	return m.err
}
