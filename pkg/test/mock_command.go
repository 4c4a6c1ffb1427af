// Package test provides testify mocks shared by package tests.
package test

import (
	"context"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"github.com/stretchr/testify/mock"
)

// MockCommand is a mock implementation of commands.Command.
type MockCommand struct {
	mock.Mock
}

// NewMockCommand creates a MockCommand whose expectations are asserted when
// the test ends.
func NewMockCommand(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCommand {
	m := &MockCommand{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockCommand) Name() string {
	return m.Called().String(0)
}

func (m *MockCommand) Description() string {
	return m.Called().String(0)
}

func (m *MockCommand) Options() []discord.CommandOption {
	args := m.Called()
	opts, _ := args.Get(0).([]discord.CommandOption)

	return opts
}

func (m *MockCommand) Execute(ctx context.Context, s *session.Session, e *gateway.InteractionCreateEvent, data *discord.CommandInteraction) error {
	return m.Called(ctx, s, e, data).Error(0)
}
