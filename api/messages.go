package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ericfitz/drawroom/api/models"
)

// Envelope channels
const (
	ChannelCanvas      = "canvas"
	ChannelRoomControl = "room_control"
)

// Envelope operations
const (
	OperationCreate     = "create"
	OperationUpdate     = "update"
	OperationDelete     = "delete"
	OperationBanUser    = "ban_user"
	OperationChangeRole = "change_role"
	OperationIsOnline   = "is_online"
	OperationInitial    = "initial"
	OperationError      = "error"
)

// ShapeType is the kind of a drawable object
type ShapeType string

const (
	ShapeEllipse   ShapeType = "ellipse"
	ShapeRectangle ShapeType = "rectangle"
	ShapePencil    ShapeType = "pencil"
	ShapeLine      ShapeType = "line"
	ShapeArrow     ShapeType = "arrow"
	ShapeText      ShapeType = "text"
)

// IsValid reports whether t is a known shape
func (t ShapeType) IsValid() bool {
	switch t {
	case ShapeEllipse, ShapeRectangle, ShapePencil, ShapeLine, ShapeArrow, ShapeText:
		return true
	}
	return false
}

// contentKeys are the envelope fields that describe a drawable object
var contentKeys = []string{"type", "text", "startX", "startY", "endX", "endY", "points", "color"}

// ContentFields is the validated, shape-tagged payload of a canvas message
type ContentFields struct {
	Type   ShapeType        `json:"type"`
	Text   *string          `json:"text,omitempty"`
	StartX *float64         `json:"startX,omitempty"`
	StartY *float64         `json:"startY,omitempty"`
	EndX   *float64         `json:"endX,omitempty"`
	EndY   *float64         `json:"endY,omitempty"`
	Points models.PointList `json:"points,omitempty"`
	Color  string           `json:"color"`
}

// ClientMessage is one of the operations a client may send: *CanvasCreate,
// *CanvasUpdate, *CanvasDelete, *BanUser or *ChangeRole.
type ClientMessage interface {
	channel() string
	operation() string
}

// CanvasCreate asks the broker to persist a new object
type CanvasCreate struct {
	TempID  string
	Content ContentFields
}

// CanvasUpdate changes fields of an existing object. Patch holds only the
// content keys present in the frame, as a JSON merge patch.
type CanvasUpdate struct {
	ID      string
	Content ContentFields
	Patch   json.RawMessage
}

// CanvasDelete removes an object
type CanvasDelete struct {
	ID      string
	Content ContentFields
}

// BanUser bans or unbans a member of the room
type BanUser struct {
	Ban          bool
	TargetUserID string
}

// ChangeRole assigns a new role to a member of the room
type ChangeRole struct {
	NewRole      string
	TargetUserID string
}

func (*CanvasCreate) channel() string   { return ChannelCanvas }
func (*CanvasCreate) operation() string { return OperationCreate }
func (*CanvasUpdate) channel() string   { return ChannelCanvas }
func (*CanvasUpdate) operation() string { return OperationUpdate }
func (*CanvasDelete) channel() string   { return ChannelCanvas }
func (*CanvasDelete) operation() string { return OperationDelete }
func (*BanUser) channel() string        { return ChannelRoomControl }
func (*BanUser) operation() string      { return OperationBanUser }
func (*ChangeRole) channel() string     { return ChannelRoomControl }
func (*ChangeRole) operation() string   { return OperationChangeRole }

type envelope struct {
	Channel   string `json:"channel"`
	Operation string `json:"operation"`
}

type wirePoint struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type wireContent struct {
	Type   *string     `json:"type"`
	Text   *string     `json:"text"`
	StartX *float64    `json:"startX"`
	StartY *float64    `json:"startY"`
	EndX   *float64    `json:"endX"`
	EndY   *float64    `json:"endY"`
	Points []wirePoint `json:"points"`
	Color  *string     `json:"color"`
}

type wireCanvas struct {
	wireContent
	ID     *string `json:"id"`
	TempID *string `json:"tempId"`
}

type wireBan struct {
	Ban          *bool   `json:"ban"`
	TargetUserID *string `json:"targetUserId"`
}

type wireChangeRole struct {
	NewRole      *string `json:"new_role"`
	TargetUserID *string `json:"targetUserId"`
}

// ParseClientMessage decodes and validates an inbound frame. Unknown fields
// are ignored; server-only operations are rejected.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch env.Channel {
	case ChannelCanvas:
		return parseCanvasMessage(env.Operation, data)
	case ChannelRoomControl:
		return parseRoomControlMessage(env.Operation, data)
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", ErrInvalidMessage, env.Channel)
	}
}

func parseCanvasMessage(operation string, data []byte) (ClientMessage, error) {
	var wire wireCanvas
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch operation {
	case OperationCreate, OperationUpdate, OperationDelete:
	case OperationError:
		return nil, fmt.Errorf("%w: operation %q is server-only", ErrInvalidMessage, operation)
	default:
		return nil, fmt.Errorf("%w: unknown canvas operation %q", ErrInvalidMessage, operation)
	}

	content, err := wire.wireContent.validate()
	if err != nil {
		return nil, err
	}

	switch operation {
	case OperationCreate:
		if wire.TempID == nil || *wire.TempID == "" {
			return nil, fmt.Errorf("%w: tempId is required", ErrInvalidMessage)
		}
		return &CanvasCreate{TempID: *wire.TempID, Content: content}, nil

	case OperationUpdate:
		if wire.ID == nil || *wire.ID == "" {
			return nil, fmt.Errorf("%w: id is required", ErrInvalidMessage)
		}
		patch, err := contentPatch(data)
		if err != nil {
			return nil, err
		}
		return &CanvasUpdate{ID: *wire.ID, Content: content, Patch: patch}, nil

	default:
		if wire.ID == nil || *wire.ID == "" {
			return nil, fmt.Errorf("%w: id is required", ErrInvalidMessage)
		}
		return &CanvasDelete{ID: *wire.ID, Content: content}, nil
	}
}

func parseRoomControlMessage(operation string, data []byte) (ClientMessage, error) {
	switch operation {
	case OperationBanUser:
		var wire wireBan
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		if wire.Ban == nil {
			return nil, fmt.Errorf("%w: ban is required", ErrInvalidMessage)
		}
		if wire.TargetUserID == nil || *wire.TargetUserID == "" {
			return nil, fmt.Errorf("%w: targetUserId is required", ErrInvalidMessage)
		}
		return &BanUser{Ban: *wire.Ban, TargetUserID: *wire.TargetUserID}, nil

	case OperationChangeRole:
		var wire wireChangeRole
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		if wire.NewRole == nil || (*wire.NewRole != models.RoleMember && *wire.NewRole != models.RoleModerator) {
			return nil, fmt.Errorf("%w: new_role must be %q or %q", ErrInvalidMessage, models.RoleMember, models.RoleModerator)
		}
		if wire.TargetUserID == nil || *wire.TargetUserID == "" {
			return nil, fmt.Errorf("%w: targetUserId is required", ErrInvalidMessage)
		}
		return &ChangeRole{NewRole: *wire.NewRole, TargetUserID: *wire.TargetUserID}, nil

	case OperationIsOnline, OperationInitial, OperationError:
		return nil, fmt.Errorf("%w: operation %q is server-only", ErrInvalidMessage, operation)

	default:
		return nil, fmt.Errorf("%w: unknown room_control operation %q", ErrInvalidMessage, operation)
	}
}

// parseContentFields decodes and validates a content document, such as
// the result of merging an update onto a stored object.
func parseContentFields(data []byte) (ContentFields, error) {
	var wire wireContent
	if err := json.Unmarshal(data, &wire); err != nil {
		return ContentFields{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return wire.validate()
}

func (w wireContent) validate() (ContentFields, error) {
	if w.Type == nil || !ShapeType(*w.Type).IsValid() {
		return ContentFields{}, fmt.Errorf("%w: unknown shape type", ErrInvalidMessage)
	}
	if w.Color == nil {
		return ContentFields{}, fmt.Errorf("%w: color is required", ErrInvalidMessage)
	}

	fields := ContentFields{
		Type:   ShapeType(*w.Type),
		Text:   w.Text,
		StartX: w.StartX,
		StartY: w.StartY,
		EndX:   w.EndX,
		EndY:   w.EndY,
		Color:  *w.Color,
	}
	if w.Points != nil {
		fields.Points = make(models.PointList, 0, len(w.Points))
		for i, p := range w.Points {
			if p.X == nil || p.Y == nil {
				return ContentFields{}, fmt.Errorf("%w: point %d needs x and y", ErrInvalidMessage, i)
			}
			fields.Points = append(fields.Points, models.Point{X: *p.X, Y: *p.Y})
		}
	}
	return fields, nil
}

// contentPatch extracts the content keys of a frame, keeping explicit nulls
func contentPatch(data []byte) (json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	patch := make(map[string]json.RawMessage, len(contentKeys))
	for _, key := range contentKeys {
		if v, ok := raw[key]; ok {
			patch[key] = v
		}
	}
	out, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return out, nil
}

// contentFieldsFromModel converts a stored object to its wire fields
func contentFieldsFromModel(c *models.Content) ContentFields {
	return ContentFields{
		Type:   ShapeType(c.Type),
		Text:   c.Text,
		StartX: c.StartX,
		StartY: c.StartY,
		EndX:   c.EndX,
		EndY:   c.EndY,
		Points: c.Points,
		Color:  c.Color,
	}
}

// applyTo copies the fields onto a stored object
func (f ContentFields) applyTo(c *models.Content) {
	c.Type = string(f.Type)
	c.Text = f.Text
	c.StartX = f.StartX
	c.StartY = f.StartY
	c.EndX = f.EndX
	c.EndY = f.EndY
	c.Points = f.Points
	c.Color = f.Color
}

// CanvasEvent is the server-to-room form of a canvas operation
type CanvasEvent struct {
	Channel   string `json:"channel"`
	Operation string `json:"operation"`
	ID        string `json:"id"`
	TempID    string `json:"tempId,omitempty"`
	ContentFields
	UserID    string `json:"userId"`
	RoomID    string `json:"roomId"`
	Timestamp int64  `json:"timestamp"`
}

func newCanvasEvent(operation string, c *models.Content) CanvasEvent {
	return CanvasEvent{
		Channel:       ChannelCanvas,
		Operation:     operation,
		ID:            c.ID,
		ContentFields: contentFieldsFromModel(c),
		UserID:        c.UserID,
		RoomID:        c.RoomID,
		Timestamp:     nowMillis(),
	}
}

// CanvasError tells the originator that its operation was not persisted
type CanvasError struct {
	Channel   string `json:"channel"`
	Operation string `json:"operation"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	TempID    string `json:"tempId,omitempty"`
	ID        string `json:"id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// BanEvent announces a ban or unban to the room
type BanEvent struct {
	Channel      string `json:"channel"`
	Operation    string `json:"operation"`
	Ban          bool   `json:"ban"`
	TargetUserID string `json:"targetUserId"`
	Username     string `json:"username"`
}

// RoleChangeEvent announces a role change to the room
type RoleChangeEvent struct {
	Channel      string `json:"channel"`
	Operation    string `json:"operation"`
	NewRole      string `json:"new_role"`
	TargetUserID string `json:"targetUserId"`
	Username     string `json:"username"`
}

// RoomControlError tells the originator that a room control operation failed
type RoomControlError struct {
	Channel      string `json:"channel"`
	Operation    string `json:"operation"`
	Error        string `json:"error"`
	Message      string `json:"message"`
	TargetUserID string `json:"targetUserId,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

// IsOnlineEvent announces that a member came online or went offline
type IsOnlineEvent struct {
	Channel   string `json:"channel"`
	Operation string `json:"operation"`
	IsBanned  bool   `json:"isBanned"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	IsOnline  bool   `json:"isOnline"`
	UserID    string `json:"userId"`
}

// InitialMessage is sent once to a newly admitted session
type InitialMessage struct {
	Channel     string   `json:"channel"`
	Operation   string   `json:"operation"`
	OnlineUsers []string `json:"onlineUsers"`
	RoomName    string   `json:"roomName"`
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
