package classifier

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var keywordsYAML []byte

type categorySeed struct {
	Name string `yaml:"name"`
	Seed string `yaml:"seed"`
}

type errandBucket struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type keywordTables struct {
	CategoryCentroidSeeds []categorySeed `yaml:"category_centroid_seeds"`
	ErrandBuckets         []errandBucket `yaml:"errand_buckets"`
	Stopwords             []string       `yaml:"stopwords"`
}

var (
	categoryCentroidSeeds []categorySeed
	errandBuckets         []errandBucket
	stopwordSet           map[string]bool
)

func init() {
	var tables keywordTables
	if err := yaml.Unmarshal(keywordsYAML, &tables); err != nil {
		panic(fmt.Sprintf("classifier: malformed embedded keywords.yaml: %v", err))
	}
	categoryCentroidSeeds = tables.CategoryCentroidSeeds
	errandBuckets = tables.ErrandBuckets

	stopwordSet = make(map[string]bool, len(tables.Stopwords))
	for _, w := range tables.Stopwords {
		stopwordSet[w] = true
	}
}
