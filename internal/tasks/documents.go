package tasks

import (
	"context"
	"fmt"
	"strings"
	"net/http"
	"time"

	"github.com/zjrosen/taskdeck/internal/apierr"
	"github.com/zjrosen/taskdeck/internal/cachemanager"
	"github.com/zjrosen/taskdeck/internal/log"
	"github.com/zjrosen/taskdeck/internal/transport"
)

// DefaultDocumentTTL is how long a downloaded document is served from cache.
const DefaultDocumentTTL = 10 * time.Minute

const msgDownloadFailed = "Failed to download document."

// DocumentRef identifies a stored attachment.
type DocumentRef struct {
	TaskID     string
	StoredName string
}

func (r DocumentRef) cacheKey() string {
	return "doc:" + r.TaskID + "/" + r.StoredName
}

func (r DocumentRef) path() string {
	return PathTasks + "/" + r.TaskID + "/documents/" + r.StoredName
}

// Documents downloads task attachments through a read-through cache.
type Documents struct {
	requester Requester
	cache     *cachemanager.ReadThroughCache[string, []byte, DocumentRef]
	ttl       time.Duration
}

// NewDocuments creates a downloader. A non-positive ttl disables caching.
func NewDocuments(r Requester, cache cachemanager.CacheManager[string, []byte], ttl time.Duration) *Documents {
	d := &Documents{requester: r, ttl: ttl}
	d.cache = cachemanager.NewReadThroughCache(cache, d.fetch, ttl <= 0)
	return d
}

// Download returns the raw bytes of a stored document.
func (d *Documents) Download(ctx context.Context, taskID, storedName string) ([]byte, error) {
	if err := validateID(taskID); err != nil {
		return nil, err
	}
	if storedName == "" || strings.ContainsAny(storedName, "/?#") {
		return nil, fmt.Errorf("invalid document name %q", storedName)
	}
	ref := DocumentRef{TaskID: taskID, StoredName: storedName}
	return d.cache.Get(ctx, ref.cacheKey(), ref, d.ttl)
}

// Forget drops the cached copies of the given documents.
func (d *Documents) Forget(ctx context.Context, refs ...DocumentRef) error {
	keys := make([]string, 0, len(refs))
	for _, r := range refs {
		keys = append(keys, r.cacheKey())
	}
	return d.cache.Invalidate(ctx, keys...)
}

func (d *Documents) fetch(ctx context.Context, ref DocumentRef) ([]byte, error) {
	resp, err := d.requester.Request(ctx, http.MethodGet, ref.path(), transport.Options{
		Headers: http.Header{"Accept": []string{"application/octet-stream"}},
	})
	if err != nil {
		return nil, apierr.WithFallback(err, msgDownloadFailed)
	}
	log.Debug(log.CatTasks, "document downloaded", "task", ref.TaskID, "stored", ref.StoredName, "bytes", len(resp.Data))
	return resp.Data, nil
}
