package gateway

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"civic-realtime/internal/apperror"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type conversationRef struct {
	ConversationType string `json:"conversationType" validate:"required,oneof=direct group"`
	ConversationID   string `json:"conversationId" validate:"required,uuid"`
}

type leaveConversation struct {
	ConversationID string `json:"conversationId" validate:"required,uuid"`
}

type sendMessage struct {
	ConversationType string   `json:"conversationType" validate:"required,oneof=direct group"`
	ConversationID   string   `json:"conversationId" validate:"required,uuid"`
	Text             string   `json:"text" validate:"max=4000"`
	Attachments      []string `json:"attachments" validate:"max=10,dive,required,max=2048"`
}

type editMessage struct {
	MessageID string `json:"messageId" validate:"required,uuid"`
	Text      string `json:"text" validate:"required,max=4000"`
}

type messageRef struct {
	MessageID string `json:"messageId" validate:"required,uuid"`
}

type communityRef struct {
	CommunityID string `json:"communityId" validate:"required,uuid"`
}

type postRef struct {
	PostID string `json:"postId" validate:"required,uuid"`
}

type createComment struct {
	PostID   string  `json:"postId" validate:"required,uuid"`
	Content  string  `json:"content" validate:"required,max=5000"`
	ParentID *string `json:"parentId" validate:"omitempty,uuid"`
}

type commentRef struct {
	CommentID string `json:"commentId" validate:"required,uuid"`
}

// decode unmarshals data into dst and validates it. Every failure is a
// validation error naming the first offending field.
func decode(data json.RawMessage, dst any) error {
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return apperror.Wrap(apperror.KindValidation, "Invalid payload", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperror.New(apperror.KindValidation, describe(verrs[0]))
		}
		return apperror.Wrap(apperror.KindValidation, "Invalid payload", err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "uuid":
		return "invalid " + fe.Field()
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "max":
		return fe.Field() + " is too long"
	default:
		return "invalid " + fe.Field()
	}
}
