package tracking

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ImportJSON reads a legacy tracking file leniently: entries that are not
// objects are skipped and missing fields read as empty strings.
func ImportJSON(data []byte) (Tracking, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("legacy tracking file is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.New("legacy tracking file must contain a JSON object")
	}

	t := Tracking{}
	root.ForEach(func(k, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		week := v.Get("week").String()
		key := parseKey(k.String(), week)
		t[key] = Record{
			ID:            key.ID,
			Week:          key.Week,
			Date:          v.Get("date").String(),
			Name:          v.Get("name").String(),
			ContractType:  v.Get("contract_type").String(),
			CSM:           v.Get("csm").String(),
			ReplacementBy: v.Get("replacement_by").String(),
		}
		return true
	})
	return t, nil
}
