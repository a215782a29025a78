package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Op names used for coercion failures.
const (
	OpCoerceUser    = "Coerce user"
	OpCoerceMessage = "Coerce message"
)

// AsInt64 normalizes a loosely typed numeric value to int64. Floats are
// truncated toward zero. Values of any other type, NaN and infinities,
// become 0.
//
//nolint:cyclop
func AsInt64(value any) int64 {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v) //nolint:gosec
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v) //nolint:gosec
	case float32:
		return truncate(float64(v))
	case float64:
		return truncate(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}

		if f, err := v.Float64(); err == nil {
			return truncate(f)
		}

		return 0
	default:
		return 0
	}
}

func truncate(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}

	return int64(f)
}

// AsString returns value if it is a string.
func AsString(value any) (string, bool) {
	s, ok := value.(string)

	return s, ok
}

// OptionalString returns a pointer to the string stored under key, or nil
// if the key is missing, null or not a string.
func OptionalString(object map[string]any, key string) *string {
	if s, ok := AsString(object[key]); ok {
		return &s
	}

	return nil
}

// AsObject returns value as a JSON object.
func AsObject(value any, op string) (map[string]any, error) {
	object, ok := value.(map[string]any)
	if !ok {
		return nil, NewFailure(KindCoercion, op, fmt.Sprintf("%s failed: %s (got %T)", op, ErrNotAnObject, value), ErrNotAnObject)
	}

	return object, nil
}

// CoerceUser builds a User from a loose JSON object. A missing username
// falls back to "name" and then to DefaultUsername; a missing email becomes "".
func CoerceUser(raw any) (User, error) {
	object, err := AsObject(raw, OpCoerceUser)
	if err != nil {
		return User{}, err
	}

	username, ok := AsString(object["username"])
	if !ok {
		username, ok = AsString(object["name"])
	}

	if !ok {
		username = DefaultUsername
	}

	email, _ := AsString(object["email"])

	return User{
		ID:                AsInt64(object["id"]),
		Email:             email,
		Username:          username,
		ProfilePictureURL: OptionalString(object, "profile_picture_url"),
	}, nil
}

// CoerceMessage builds a Message from a loose JSON object.
func CoerceMessage(raw any) (Message, error) {
	object, err := AsObject(raw, OpCoerceMessage)
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID:         AsInt64(object["id"]),
		SenderID:   AsInt64(object["sender_id"]),
		ReceiverID: AsInt64(object["receiver_id"]),
		AudioURL:   OptionalString(object, "audio_url"),
		MediaURL:   OptionalString(object, "media_url"),
		TextNote:   OptionalString(object, "text_note"),
		Timestamp:  OptionalString(object, "timestamp"),
	}, nil
}

// CoerceList applies coerce to every element. Elements that fail are
// dropped and their errors returned alongside the coerced values, so one
// bad element never aborts the rest.
func CoerceList[T any](raw []any, coerce func(any) (T, error)) ([]T, []error) {
	values := make([]T, 0, len(raw))

	var errs []error

	for _, element := range raw {
		value, err := coerce(element)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		values = append(values, value)
	}

	return values, errs
}
