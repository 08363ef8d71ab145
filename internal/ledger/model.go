package ledger

import (
	"time"

	"gorm.io/gorm"
)

// TurnModel represents the database model for a recorded turn
type TurnModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `gorm:"column:created_at;index"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`

	SessionID      string `gorm:"column:session_id;unique;not null;size:36"`
	UserBase       string `gorm:"column:user_base;not null;size:64"`
	AssistantBase  string `gorm:"column:assistant_base;size:64"`
	UserText       string `gorm:"column:user_text;type:text"`
	AssistantText  string `gorm:"column:assistant_text;type:text"`
	AudioLocator   string `gorm:"column:audio_locator;size:255"`
	Model          string `gorm:"column:model;size:100"`
	Backend        string `gorm:"column:backend;size:50"`
	Degraded       bool   `gorm:"column:degraded;default:false"`
	NoSpeech       bool   `gorm:"column:no_speech;default:false"`
	SynthesisError string `gorm:"column:synthesis_error;size:1000"`
}

// TableName sets the table name for GORM
func (TurnModel) TableName() string {
	return "voice_turns"
}

func modelFromTurn(turn *Turn) *TurnModel {
	return &TurnModel{
		CreatedAt:      turn.CreatedAt,
		SessionID:      turn.SessionID,
		UserBase:       turn.UserBase,
		AssistantBase:  turn.AssistantBase,
		UserText:       turn.UserText,
		AssistantText:  turn.AssistantText,
		AudioLocator:   turn.AudioLocator,
		Model:          turn.Model,
		Backend:        turn.Backend,
		Degraded:       turn.Degraded,
		NoSpeech:       turn.NoSpeech,
		SynthesisError: turn.SynthesisError,
	}
}

func (m *TurnModel) toTurn() *Turn {
	return &Turn{
		SessionID:      m.SessionID,
		CreatedAt:      m.CreatedAt,
		UserBase:       m.UserBase,
		AssistantBase:  m.AssistantBase,
		UserText:       m.UserText,
		AssistantText:  m.AssistantText,
		AudioLocator:   m.AudioLocator,
		Model:          m.Model,
		Backend:        m.Backend,
		Degraded:       m.Degraded,
		NoSpeech:       m.NoSpeech,
		SynthesisError: m.SynthesisError,
	}
}
