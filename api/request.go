package api

import (
	"strconv"

	"github.com/LudoUniloan/unibot1-vercel-chatfuel/utils"
)

// messageFields are the alternate names under which the chat platform
// delivers the user's text, in priority order. Some of them contain
// spaces, which is why the request body is handled as a raw JSON
// object instead of a bound struct.
var messageFields = []string{
	"message",
	"user_text",
	"last user freeform",
	"last_user_freeform",
	"last user freeform input",
}

// ReplyRequest is the normalized view of a webhook call.
type ReplyRequest struct {
	UserID  string
	Message string
	ConvID  string
	Session interface{}
}

// ParseReplyRequest extracts the fields this service cares about from
// the raw body, tolerating numeric user IDs and the platform's
// shifting message field names.
func ParseReplyRequest(body map[string]interface{}) ReplyRequest {
	return ReplyRequest{
		UserID:  stringField(body, "user_id"),
		Message: ExtractMessage(body),
		ConvID:  stringField(body, "conv_id"),
		Session: body["session"],
	}
}

// ExtractMessage runs the ordered extractor list over the body and
// returns the first non-empty candidate, whitespace-collapsed.
func ExtractMessage(body map[string]interface{}) string {
	for _, field := range messageFields {
		if text := utils.CollapseWhitespace(stringField(body, field)); text != "" {
			return text
		}
	}
	return ""
}

func stringField(body map[string]interface{}, key string) string {
	switch v := body[key].(type) {
	case string:
		return v
	case float64:
		// Chat platforms routinely send identifiers as JSON numbers.
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
