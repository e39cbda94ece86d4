package reconcile

// Attr is a semantic session attribute that trackers have published under
// different field names over time.
type Attr int

const (
	AttrCountry Attr = iota
	AttrCity
	AttrLatitude
	AttrLongitude
	AttrClientIP
	numAttrs
)

func (a Attr) String() string {
	switch a {
	case AttrCountry:
		return "country"
	case AttrCity:
		return "city"
	case AttrLatitude:
		return "latitude"
	case AttrLongitude:
		return "longitude"
	case AttrClientIP:
		return "client_ip"
	}
	return "unknown"
}

// numeric reports whether the attribute resolves to a coordinate.
func (a Attr) numeric() bool {
	return a == AttrLatitude || a == AttrLongitude
}

// Candidates names the fields consulted for one attribute, per schema.
type Candidates struct {
	Classic []string
	V6      []string
}

// Resolution is the field table behind the fill-priority policy. Candidate
// lists are consulted in order and the first non-blank value wins.
var Resolution = [numAttrs]Candidates{
	AttrCountry:   {Classic: []string{"country"}, V6: []string{"geo_country"}},
	AttrCity:      {Classic: []string{"city"}, V6: []string{"geo_city"}},
	AttrLatitude:  {Classic: []string{"latitude"}, V6: []string{"gps_latitude"}},
	AttrLongitude: {Classic: []string{"longitude"}, V6: []string{"gps_longitude"}},
	// user_ip is the column name of the local SQLite store.
	AttrClientIP: {Classic: []string{"client_ip"}, V6: []string{"user_ip"}},
}

// Schema selects one of the two candidate lists.
type Schema int

const (
	SchemaClassic Schema = iota
	SchemaV6
)

// value is a resolved attribute value: text for labels and addresses, num for
// coordinates.
type value struct {
	set  bool
	text string
	num  float64
}

// lookup reads attr from ev using the given schema's candidate fields.
func lookup(ev RawEvent, attr Attr, schema Schema) (value, bool) {
	c := Resolution[attr]
	fields := c.Classic
	if schema == SchemaV6 {
		fields = c.V6
		if attr.numeric() && gpsDisabled(ev) {
			return value{}, false
		}
	}
	for _, f := range fields {
		if attr.numeric() {
			if n, ok := ev.Float(f); ok {
				return value{set: true, num: n}, true
			}
			continue
		}
		if s, ok := ev.String(f); ok {
			return value{set: true, text: s}, true
		}
	}
	return value{}, false
}

// gpsDisabled is true when a v6 event explicitly says no device position was
// captured; such events still send zeroed gps_* fields.
func gpsDisabled(ev RawEvent) bool {
	if _, present := ev["gps_source"]; !present {
		return false
	}
	_, ok := ev.String("gps_source")
	return !ok
}
