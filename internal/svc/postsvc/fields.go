package postsvc

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotStringList is returned for a tag field that is well-formed JSON but not an
// array of strings.
var ErrNotStringList = errors.New("not a list of strings")

// ParseTagList reads a categories or tags form field. Well-formed JSON must be an
// array of strings; text that is not JSON is read as a comma-separated list with
// blank entries dropped. The result is never nil on success.
func ParseTagList(raw string) ([]string, error) {
	if !json.Valid([]byte(raw)) {
		return splitTagList(raw), nil
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, errors.Join(ErrNotStringList, err)
	} else if list == nil {
		// null
		return nil, ErrNotStringList
	}

	return list, nil
}

func splitTagList(raw string) []string {
	list := []string{}

	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}

	return list
}
