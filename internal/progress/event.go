package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageCrawlStart Stage = "CRAWL_START"
	StageDiscovered Stage = "NODE_DISCOVERED"
	StageVisited    Stage = "NODE_VISITED"
	StageCrawlDone  Stage = "CRAWL_DONE"
	StageCrawlError Stage = "CRAWL_ERROR"
)

// Event captures a single change in crawl progress.
type Event struct {
	// CrawlID identifies the crawl in its 16-byte UUID form.
	CrawlID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// Kind scopes node and start events to movies or people.
	Kind graph.Kind
	// NodeID and URL identify the node of discovered/visited events.
	NodeID int
	URL    string
	// Discovered is the registry size of Kind, set on discovered and
	// start events.
	Discovered int
	// Finished is the number of visited nodes of Kind, set on visited
	// and start events.
	Finished int
	// Dur is the visit latency, or the crawl runtime on done/error.
	Dur  time.Duration
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.CrawlID == [16]byte{} {
		return errors.New("crawl id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageCrawlDone, StageCrawlError:
	case StageCrawlStart:
		if !e.Kind.Valid() {
			return fmt.Errorf("crawl start has invalid kind %d", int(e.Kind))
		}
	case StageDiscovered, StageVisited:
		if !e.Kind.Valid() {
			return fmt.Errorf("%s has invalid kind %d", e.Stage, int(e.Kind))
		}
		if e.NodeID <= 0 {
			return fmt.Errorf("%s requires a node id", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// CrawlUUID converts the binary crawl id back to uuid.UUID.
func (e Event) CrawlUUID() uuid.UUID {
	return uuid.UUID(e.CrawlID)
}

// CrawlIDBytes maps a crawl id string to the Event form. Ids that are not
// UUIDs are hashed into a stable name-based UUID.
func CrawlIDBytes(crawlID string) [16]byte {
	id, err := uuid.Parse(crawlID)
	if err != nil {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte("moviegraph:"+crawlID))
	}
	return [16]byte(id)
}
