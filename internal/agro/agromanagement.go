// Package agro reads and writes PCSE agromanagement files: YAML documents
// with a Version header and an AgroManagement list of date-keyed campaigns.
package agro

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/wofost-input-etl/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	scheduleKey = "AgroManagement"
	calendarKey = "CropCalendar"
	startKey    = "crop_start_date"
	endKey      = "crop_end_date"
)

// Preferred key order when writing mappings; remaining keys follow sorted.
var (
	headerOrder   = []string{"Version"}
	campaignOrder = []string{calendarKey, "TimedEvents", "StateEvents"}
	calendarOrder = []string{"crop_name", "variety_name", startKey, "crop_start_type", endKey, "crop_end_type", "max_duration"}
)

// Document is a parsed agromanagement file.
type Document struct {
	Header    domain.Fields // top-level keys other than AgroManagement
	Campaigns []domain.Campaign
}

// Decode parses an agromanagement document. A missing schedule, a campaign
// that is not a single date-keyed entry, or a CropCalendar without its
// start or end date fails with domain.ErrSchema.
func Decode(r io.Reader) (Document, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("%w: empty agromanagement document", domain.ErrSchema)
		}
		return Document{}, fmt.Errorf("%w: parse agromanagement: %v", domain.ErrSchema, err)
	}

	top := resolve(&root)
	if top.Kind != yaml.MappingNode {
		return Document{}, fmt.Errorf("%w: agromanagement document must be a mapping", domain.ErrSchema)
	}

	doc := Document{Header: domain.Fields{}}
	found := false
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i].Value, top.Content[i+1]
		if key == scheduleKey {
			campaigns, err := decodeCampaigns(value)
			if err != nil {
				return Document{}, err
			}
			doc.Campaigns = campaigns
			found = true
			continue
		}
		v, err := nodeToValue(value)
		if err != nil {
			return Document{}, fmt.Errorf("%w: %s: %v", domain.ErrSchema, key, err)
		}
		doc.Header[key] = v
	}
	if !found {
		return Document{}, fmt.Errorf("%w: missing %s", domain.ErrSchema, scheduleKey)
	}
	return doc, nil
}

func decodeCampaigns(n *yaml.Node) ([]domain.Campaign, error) {
	n = resolve(n)
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: %s must be a list of campaigns", domain.ErrSchema, scheduleKey)
	}

	campaigns := make([]domain.Campaign, 0, len(n.Content))
	for i, item := range n.Content {
		item = resolve(item)
		if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
			return nil, fmt.Errorf("%w: campaign %d must be a single date-keyed entry", domain.ErrSchema, i)
		}
		c, err := decodeCampaign(item.Content[0], item.Content[1])
		if err != nil {
			return nil, fmt.Errorf("campaign %d: %w", i, err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, nil
}

func decodeCampaign(keyNode, bodyNode *yaml.Node) (domain.Campaign, error) {
	key, err := domain.ParseDate(resolve(keyNode).Value)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("%w: campaign key: %v", domain.ErrSchema, err)
	}
	c := domain.Campaign{Key: key}

	body, err := nodeToValue(bodyNode)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("%w: %v", domain.ErrSchema, err)
	}
	if body == nil {
		return c, nil
	}
	sections, ok := body.(domain.Fields)
	if !ok {
		return domain.Campaign{}, fmt.Errorf("%w: campaign %s must be a mapping", domain.ErrSchema, key)
	}

	raw := sections[calendarKey]
	delete(sections, calendarKey)
	c.Sections = sections
	if raw == nil {
		return c, nil
	}

	fields, ok := raw.(domain.Fields)
	if !ok {
		return domain.Campaign{}, fmt.Errorf("%w: %s of campaign %s must be a mapping", domain.ErrSchema, calendarKey, key)
	}
	start, err := takeDate(fields, startKey)
	if err != nil {
		return domain.Campaign{}, err
	}
	end, err := takeDate(fields, endKey)
	if err != nil {
		return domain.Campaign{}, err
	}
	c.Calendar = &domain.CropCalendar{StartDate: start, EndDate: end, Fields: fields}
	return c, nil
}

// takeDate removes key from f and returns it as a Date.
func takeDate(f domain.Fields, key string) (domain.Date, error) {
	v, ok := f[key]
	if !ok {
		return domain.Date{}, fmt.Errorf("%w: %s missing %s", domain.ErrSchema, calendarKey, key)
	}
	delete(f, key)

	switch tv := v.(type) {
	case domain.Date:
		return tv, nil
	case time.Time:
		return domain.DateOf(tv), nil
	case string:
		d, err := domain.ParseDate(tv)
		if err != nil {
			return domain.Date{}, fmt.Errorf("%w: %s: %v", domain.ErrSchema, key, err)
		}
		return d, nil
	default:
		return domain.Date{}, fmt.Errorf("%w: %s is %T, want a date", domain.ErrSchema, key, v)
	}
}

// Encode writes doc as YAML with four-space indentation.
func Encode(w io.Writer, doc Document) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range orderedKeys(doc.Header, headerOrder) {
		root.Content = append(root.Content, keyNode(k), valueToNode(doc.Header[k]))
	}

	schedule := &yaml.Node{Kind: yaml.SequenceNode}
	for _, c := range doc.Campaigns {
		schedule.Content = append(schedule.Content, campaignNode(c))
	}
	root.Content = append(root.Content, keyNode(scheduleKey), schedule)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(4)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("%w: encode agromanagement: %v", domain.ErrIO, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: encode agromanagement: %v", domain.ErrIO, err)
	}
	return nil
}

// Shift moves every campaign so the first crop starts in targetYear.
// With firstOnly the schedule is cut to its first campaign before shifting.
func Shift(doc Document, targetYear int, policy domain.LeapDayPolicy, firstOnly bool) (Document, error) {
	campaigns := doc.Campaigns
	if firstOnly && len(campaigns) > 1 {
		campaigns = campaigns[:1]
	}
	shifted, err := domain.ShiftAgromanagement(campaigns, targetYear, policy)
	if err != nil {
		return Document{}, err
	}
	return Document{Header: doc.Header.Clone(), Campaigns: shifted}, nil
}

func campaignNode(c domain.Campaign) *yaml.Node {
	var body *yaml.Node
	if c.Calendar == nil && c.Sections == nil {
		body = nullNode()
	} else {
		sections := c.Sections.Clone()
		if sections == nil {
			sections = domain.Fields{}
		}
		body = mappingNode(sections, campaignOrder)
		calendar := nullNode()
		if c.Calendar != nil {
			calendar = calendarNode(c.Calendar)
		}
		body.Content = append([]*yaml.Node{keyNode(calendarKey), calendar}, body.Content...)
	}
	return &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: []*yaml.Node{keyNode(c.Key.String()), body},
	}
}

func calendarNode(cal *domain.CropCalendar) *yaml.Node {
	fields := cal.Fields.Clone()
	if fields == nil {
		fields = domain.Fields{}
	}
	fields[startKey] = cal.StartDate
	fields[endKey] = cal.EndDate
	return mappingNode(fields, calendarOrder)
}

func mappingNode(f domain.Fields, order []string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range orderedKeys(f, order) {
		n.Content = append(n.Content, keyNode(k), valueToNode(f[k]))
	}
	return n
}

// orderedKeys lists the keys of f named in preferred first, then the rest sorted.
func orderedKeys(f domain.Fields, preferred []string) []string {
	keys := make([]string, 0, len(f))
	seen := make(map[string]bool, len(preferred))
	for _, k := range preferred {
		if _, ok := f[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(f))
	for k := range f {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// keyNode emits mapping keys untagged so date keys stay plain dates.
func keyNode(k string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: k}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func valueToNode(v any) *yaml.Node {
	switch tv := v.(type) {
	case nil:
		return nullNode()
	case domain.Fields:
		return mappingNode(tv, nil)
	case map[string]any:
		return mappingNode(domain.Fields(tv), nil)
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range tv {
			n.Content = append(n.Content, valueToNode(item))
		}
		return n
	case domain.Date:
		return scalarNode("!!timestamp", tv.String())
	case time.Time:
		return scalarNode("!!timestamp", tv.Format(time.RFC3339Nano))
	case bool:
		return scalarNode("!!bool", strconv.FormatBool(tv))
	case int:
		return scalarNode("!!int", strconv.Itoa(tv))
	case int64:
		return scalarNode("!!int", strconv.FormatInt(tv, 10))
	case float64:
		return scalarNode("!!float", formatFloat(tv))
	case string:
		return scalarNode("!!str", tv)
	default:
		return scalarNode("!!str", fmt.Sprint(tv))
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if _, err := strconv.Atoi(s); err == nil {
		s += ".0"
	}
	return s
}

// nodeToValue converts a YAML subtree into Fields, slices and scalars,
// keeping dates as domain.Date so they are written back as plain dates.
func nodeToValue(n *yaml.Node) (any, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.MappingNode:
		f := make(domain.Fields, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := nodeToValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			f[resolve(n.Content[i]).Value] = v
		}
		return f, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeToValue(c)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case yaml.ScalarNode:
		return scalarValue(n)
	default:
		return nil, fmt.Errorf("unsupported yaml node at line %d", n.Line)
	}
}

func scalarValue(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		err := n.Decode(&b)
		return b, err
	case "!!int":
		var i int
		err := n.Decode(&i)
		return i, err
	case "!!float":
		var f float64
		err := n.Decode(&f)
		return f, err
	case "!!timestamp":
		if d, err := domain.ParseDate(n.Value); err == nil {
			return d, nil
		}
		var t time.Time
		err := n.Decode(&t)
		return t, err
	default:
		return n.Value, nil
	}
}

// resolve follows document wrappers and aliases to the node they stand for.
func resolve(n *yaml.Node) *yaml.Node {
	for {
		switch {
		case n.Kind == yaml.DocumentNode && len(n.Content) > 0:
			n = n.Content[0]
		case n.Kind == yaml.AliasNode && n.Alias != nil:
			n = n.Alias
		default:
			return n
		}
	}
}
