package reader

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/pitchtrack/pkg/logger"
	"github.com/okian/pitchtrack/pkg/metrics"
)

const unknownEventID = "unknown"

// Annotation is one labeled moment of a game.
type Annotation struct {
	GameEventID       flexString `json:"gameEventId"`
	PossessionEventID flexString `json:"possessionEventId"`
	Label             flexString `json:"label"`
	Position          flexInt    `json:"position"`
	GameTime          flexString `json:"gameTime"`
}

// EventID returns gameEventId, else possessionEventId, else "unknown".
func (a Annotation) EventID() string {
	switch {
	case a.GameEventID.set:
		return a.GameEventID.text
	case a.PossessionEventID.set:
		return a.PossessionEventID.text
	}
	return unknownEventID
}

// PositionMS returns the annotated timestamp in milliseconds.
func (a Annotation) PositionMS() (int64, bool) { return a.Position.value, a.Position.set }

// LabelText returns the label and whether it was present. Numeric labels
// read as their decimal text.
func (a Annotation) LabelText() (string, bool) { return a.Label.text, a.Label.set }

// GameTimeText returns the display game time.
func (a Annotation) GameTimeText() string { return a.GameTime.text }

// AnnotationCache keeps parsed annotations per game id. It is safe for
// concurrent use and may be shared by several readers.
//
// A cache of size zero is unbounded. A bounded cache evicts the least
// recently used game, but grows to hold every video of a document while
// ingesting it.
type AnnotationCache struct {
	mu    sync.Mutex
	size  int
	lru   *lru.Cache[string, []Annotation]
	games map[string][]Annotation
}

// NewAnnotationCache returns a cache holding at most size games, or every
// game when size is zero.
func NewAnnotationCache(size int) (*AnnotationCache, error) {
	if size < 0 {
		return nil, fmt.Errorf("create annotation cache: negative size %d", size)
	}
	if size == 0 {
		return &AnnotationCache{games: make(map[string][]Annotation)}, nil
	}
	c, err := lru.New[string, []Annotation](size)
	if err != nil {
		return nil, fmt.Errorf("create annotation cache: %w", err)
	}
	return &AnnotationCache{size: size, lru: c}, nil
}

// Put stores the annotations of game, replacing earlier ones.
func (c *AnnotationCache) Put(game string, anns []Annotation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(game, anns)
}

func (c *AnnotationCache) put(game string, anns []Annotation) {
	if c.lru == nil {
		c.games[game] = anns
	} else {
		c.lru.Add(game, anns)
	}
	metrics.UpdateAnnotationCacheGames(c.len())
}

// Get returns the annotations of game. A cached game with zero
// annotations still reports ok.
func (c *AnnotationCache) Get(game string) ([]Annotation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var (
		anns []Annotation
		ok   bool
	)
	if c.lru == nil {
		anns, ok = c.games[game]
	} else {
		anns, ok = c.lru.Get(game)
	}
	metrics.RecordAnnotationLookup(ok)
	return anns, ok
}

// Len returns the number of cached games.
func (c *AnnotationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.len()
}

func (c *AnnotationCache) len() int {
	if c.lru == nil {
		return len(c.games)
	}
	return c.lru.Len()
}

// Size returns the current bound, zero when unbounded.
func (c *AnnotationCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Games returns the cached game ids in lexical order.
func (c *AnnotationCache) Games() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []string
	if c.lru == nil {
		keys = make([]string, 0, len(c.games))
		for k := range c.games {
			keys = append(keys, k)
		}
	} else {
		keys = c.lru.Keys()
	}
	sort.Strings(keys)
	return keys
}

// putAll stores one document's games. A bounded cache is grown first so
// none of them evicts another.
func (c *AnnotationCache) putAll(games []annotationVideo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lru != nil && len(games) > c.size {
		c.lru.Resize(len(games))
		c.size = len(games)
	}
	for _, v := range games {
		c.put(v.gameID, v.annotations)
	}
}

type annotationVideo struct {
	gameID      string
	annotations []Annotation
}

type rawVideo struct {
	GameID      flexString        `json:"gameId"`
	Annotations []json.RawMessage `json:"annotations"`
}

// ingest parses the annotations document at path into the cache and
// returns the number of videos stored. A missing file, a non-object
// document or one without a "videos" list adds nothing. Malformed videos
// and annotations are skipped one by one; none of those are errors.
func (c *AnnotationCache) ingest(ctx context.Context, log logger.Logger, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info(ctx, "annotations file not found", logger.String("path", path))
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrOpenSource, err)
	}
	defer f.Close()

	var doc map[string]json.RawMessage
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&doc); err != nil {
		log.Warn(ctx, "annotations document is not a JSON object", logger.String("path", path), logger.Error(err))
		return 0, nil
	}
	rawVideos, ok := doc["videos"]
	if !ok {
		log.Info(ctx, "annotations document has no videos", logger.String("path", path))
		return 0, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(rawVideos, &entries); err != nil {
		log.Warn(ctx, "annotations videos are not a list", logger.String("path", path), logger.Error(err))
		return 0, nil
	}

	videos := make([]annotationVideo, 0, len(entries))
	for i, entry := range entries {
		var rv rawVideo
		if err := json.Unmarshal(entry, &rv); err != nil {
			log.Warn(ctx, "skipping malformed annotation video", logger.String("path", path), logger.Int("video", i), logger.Error(err))
			continue
		}
		if !rv.GameID.set {
			log.Warn(ctx, "annotation video without gameId", logger.String("path", path), logger.Int("video", i))
			continue
		}
		videos = append(videos, annotationVideo{
			gameID:      rv.GameID.text,
			annotations: decodeAnnotations(ctx, log, rv.GameID.text, rv.Annotations),
		})
	}
	c.putAll(videos)
	return len(videos), nil
}

func decodeAnnotations(ctx context.Context, log logger.Logger, game string, raw []json.RawMessage) []Annotation {
	anns := make([]Annotation, 0, len(raw))
	for i, r := range raw {
		var a Annotation
		if err := json.Unmarshal(r, &a); err != nil {
			log.Warn(ctx, "skipping malformed annotation", logger.String("game", game), logger.Int("annotation", i), logger.Error(err))
			metrics.RecordEventDiscarded(metrics.ReaderJSONL, "malformed_annotation")
			continue
		}
		anns = append(anns, a)
	}
	return anns
}
