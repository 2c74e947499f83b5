// Package classify derives what a generated file actually is from its text,
// which can diverge from the role it was planned with.
package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
)

// Markers name the parent types that distinguish validation classes from
// persistence classes.
type Markers struct {
	ValidationBase   string
	PersistenceBases []string
}

// MarkersFrom reads markers from configuration.
func MarkersFrom(cfg config.ConsistencyConfig) Markers {
	return Markers{ValidationBase: cfg.ValidationBase, PersistenceBases: cfg.PersistenceBases}
}

// Classifier scans files line by line. Results are cached by path and content.
type Classifier struct {
	markers Markers
	cache   *lru.Cache[string, schemas.ClassificationResult]
	logger  *zap.Logger
}

// New returns a classifier caching up to cacheSize results.
func New(markers Markers, cacheSize int, logger *zap.Logger) *Classifier {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[string, schemas.ClassificationResult](cacheSize)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return &Classifier{markers: markers, cache: cache, logger: logger.Named("classifier")}
}

func cacheKey(p, content string) string {
	sum := sha256.Sum256([]byte(content))
	return p + "\x00" + hex.EncodeToString(sum[:8])
}

// Classify returns the content kind, symbols, imports and functions of a file.
func (c *Classifier) Classify(filePath, content string) schemas.ClassificationResult {
	filePath = schemas.NormalizePath(filePath)
	key := cacheKey(filePath, content)
	if res, ok := c.cache.Get(key); ok {
		return res
	}

	res := schemas.ClassificationResult{Path: filePath, Imports: ScanImports(content)}
	schemaClasses := map[string]bool{}
	modelClasses := map[string]bool{}

	for _, line := range strings.Split(content, "\n") {
		if m := classRegex.FindStringSubmatch(line); m != nil {
			sym := schemas.Symbol{Name: m[1], Parents: parents(m[2])}
			sym.Tag = c.tag(sym.Parents, schemaClasses, modelClasses)
			switch sym.Tag {
			case schemas.TagSchemaClass:
				schemaClasses[sym.Name] = true
			case schemas.TagModelClass:
				modelClasses[sym.Name] = true
			}
			res.Symbols = append(res.Symbols, sym)
			continue
		}
		if m := funcRegex.FindStringSubmatch(line); m != nil {
			res.Functions = append(res.Functions, m[1])
			continue
		}
		if m := jsFuncRegex.FindStringSubmatch(line); m != nil {
			res.Functions = append(res.Functions, m[1])
			continue
		}
		if m := assignRegex.FindStringSubmatch(line); m != nil {
			res.Variables = append(res.Variables, m[1])
		}
	}

	res.Kind = kindOf(filePath, len(schemaClasses) > 0, len(modelClasses) > 0)
	c.cache.Add(key, res)
	c.logger.Debug("Classified file",
		zap.String("path", filePath),
		zap.String("kind", string(res.Kind)),
		zap.Int("symbols", len(res.Symbols)),
		zap.Int("imports", len(res.Imports)),
	)
	return res
}

// tag decides a class's tag from its parents. A parent declared earlier in the
// same file passes its tag on, so TaskCreate(TaskBase) is a schema class when
// TaskBase(BaseModel) is.
func (c *Classifier) tag(parents []string, schemaClasses, modelClasses map[string]bool) schemas.SymbolTag {
	for _, p := range parents {
		if p == c.markers.ValidationBase || strings.HasSuffix(p, "."+c.markers.ValidationBase) || schemaClasses[p] {
			return schemas.TagSchemaClass
		}
	}
	for _, p := range parents {
		if p == c.markers.ValidationBase {
			continue
		}
		if modelClasses[p] {
			return schemas.TagModelClass
		}
		for _, base := range c.markers.PersistenceBases {
			if p == base {
				return schemas.TagModelClass
			}
		}
	}
	return schemas.TagPlain
}

func kindOf(filePath string, hasSchema, hasModel bool) schemas.ContentKind {
	base := strings.ToLower(path.Base(filePath))
	switch {
	case hasSchema || strings.Contains(base, "schema"):
		return schemas.KindValidationSchema
	case hasModel || strings.Contains(base, "model"):
		return schemas.KindPersistentModel
	case containsAny(base, "route", "router", "api", "endpoint", "controller", "view"):
		return schemas.KindRoute
	case containsAny(base, "database", "session") || base == "db.py" || base == "db.js":
		return schemas.KindDatabase
	case base == "main.py" || base == "app.py" || base == "run.py" || base == "server.js" || base == "index.js":
		return schemas.KindEntry
	default:
		return schemas.KindUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
