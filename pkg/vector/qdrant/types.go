package qdrant

// Request and response types for the Qdrant REST API.

type qdrantCollectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
	Status string `json:"status"`
}

type qdrantCreateCollectionRequest struct {
	Vectors qdrantVectorParams `json:"vectors"`
}

type qdrantVectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type qdrantUpsertRequest struct {
	Points []qdrantPoint `json:"points"`
}

type qdrantSearchRequest struct {
	Vector      []float32     `json:"vector"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	Filter      *qdrantFilter `json:"filter,omitempty"`
}

type qdrantFilter struct {
	Must    []qdrantCondition `json:"must,omitempty"`
	MustNot []qdrantCondition `json:"must_not,omitempty"`
}

type qdrantCondition struct {
	Key   string      `json:"key"`
	Match qdrantMatch `json:"match"`
}

type qdrantMatch struct {
	Value any `json:"value"`
}

type qdrantScoredPoint struct {
	ID      string        `json:"id"`
	Score   float32       `json:"score"`
	Payload qdrantPayload `json:"payload"`
}

type qdrantPayload struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	Seq        int    `json:"seq"`
	Text       string `json:"text"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	TokenCount int    `json:"token_count"`
	Meta       bool   `json:"meta"`
	Embedder   string `json:"embedder"`
}

type qdrantSearchResponse struct {
	Result []qdrantScoredPoint `json:"result"`
	Status any                 `json:"status"`
}

type qdrantRetrieveRequest struct {
	IDs         []string `json:"ids"`
	WithPayload bool     `json:"with_payload"`
}

type qdrantRetrieveResponse struct {
	Result []struct {
		ID      string        `json:"id"`
		Payload qdrantPayload `json:"payload"`
	} `json:"result"`
}

type qdrantDeleteRequest struct {
	Filter qdrantFilter `json:"filter"`
}

type qdrantListCollectionsResponse struct {
	Result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	} `json:"result"`
}
