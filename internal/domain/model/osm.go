package model

// OSMPlace is a named OpenStreetMap place node.
type OSMPlace struct {
	ID   int64             `json:"id"`
	Name string            `json:"name"`
	Kind string            `json:"kind"` // value of the place tag
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}
