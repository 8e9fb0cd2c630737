package types

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/DoyleJ11/cooking-backend/internal/recipe"
	wire "github.com/DoyleJ11/cooking-backend/pkg/types"
)

var ErrBadJSON = errors.New("bad json")
var ErrMissingType = errors.New("missing type")

type ClientMessage struct {
	Type      string      `json:"type"`
	DishNames []string    `json:"dishNames,omitempty"`
	Data      *ClientData `json:"data,omitempty"`
}

type ClientData struct {
	DishNames []string `json:"dishNames"`
}

// Dishes prefers data.dishNames and falls back to the top-level field older
// clients send.
func (m ClientMessage) Dishes() []string {
	if m.Data != nil && len(m.Data.DishNames) > 0 {
		return m.Data.DishNames
	}
	return m.DishNames
}

func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var cm ClientMessage
	if err := json.Unmarshal(data, &cm); err != nil {
		return ClientMessage{}, ErrBadJSON
	}
	cm.Type = strings.ToUpper(strings.TrimSpace(cm.Type))
	if cm.Type == "" {
		return ClientMessage{}, ErrMissingType
	}
	return cm, nil
}

type ServerMessage struct {
	Type    string            `json:"type"`
	Message *string           `json:"message"`
	Data    *wire.StepPayload `json:"data"`
}

func Text(typ, msg string) ServerMessage {
	return ServerMessage{Type: typ, Message: &msg}
}

func WithStep(typ string, msg *string, step wire.StepPayload) ServerMessage {
	return ServerMessage{Type: typ, Message: msg, Data: &step}
}

func Error(err error) ServerMessage {
	return Text(wire.TypeError, err.Error())
}

func StepPayload(dish string, st recipe.Step) wire.StepPayload {
	p := wire.StepPayload{
		DishName:        dish,
		StepNumber:      st.Number,
		Description:     st.Description,
		TargetCondition: st.TargetCondition,
		HeatLevel:       st.HeatLevel,
		IsBlockable:     st.Blockable,
	}
	if st.TimeRequirement != nil {
		p.TimeRequirement = &wire.TimeRequirement{Duration: st.TimeRequirement.Duration}
	}
	return p
}
