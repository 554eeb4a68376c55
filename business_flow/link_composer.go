package businessflow

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/avax-blinks/models"
	"github.com/amirphl/avax-blinks/utils"
)

// LinkComposer turns a platform selection into a redirect link record
type LinkComposer interface {
	Compose(platformID, destinationURL string) (models.LinkRecord, error)
	ComposeFor(platformID string) (models.LinkRecord, error)
}

// LinkComposerImpl reads its clock exactly once per composed record
type LinkComposerImpl struct {
	redirectBase string
	platforms    *models.PlatformTable
	now          func() time.Time
}

func NewLinkComposer(redirectBase string, platforms *models.PlatformTable, now func() time.Time) LinkComposer {
	if now == nil {
		now = utils.UTCNow
	}
	return &LinkComposerImpl{
		redirectBase: strings.TrimRight(redirectBase, "?"),
		platforms:    platforms,
		now:          now,
	}
}

// Compose builds the display and actual URLs. display carries the destination unencoded.
func (c *LinkComposerImpl) Compose(platformID, destinationURL string) (models.LinkRecord, error) {
	if _, ok := c.platforms.Lookup(platformID); !ok {
		return models.LinkRecord{}, NewBusinessErrorf("UNKNOWN_PLATFORM", "Platform %q is not available", ErrUnknownPlatform, platformID)
	}
	if !isAbsoluteURL(destinationURL) {
		return models.LinkRecord{}, NewBusinessError("INVALID_DESTINATION", "Destination URL must be absolute", ErrInvalidDestination)
	}

	encoded, err := utils.EncodeURIComponent(destinationURL)
	if err != nil {
		return models.LinkRecord{}, NewBusinessError("INVALID_DESTINATION", "Destination URL is not valid UTF-8", fmt.Errorf("%w: %v", ErrInvalidDestination, err))
	}

	now := c.now()
	millis := strconv.FormatInt(now.UnixMilli(), 10)

	return models.LinkRecord{
		Platform:  platformID,
		Timestamp: utils.FormatISOMillis(now),
		Display:   c.redirectBase + "?url=" + destinationURL + "&t=" + millis,
		Actual:    c.redirectBase + "?url=" + encoded + "&t=" + millis,
	}, nil
}

func (c *LinkComposerImpl) ComposeFor(platformID string) (models.LinkRecord, error) {
	entry, ok := c.platforms.Lookup(platformID)
	if !ok {
		return models.LinkRecord{}, NewBusinessErrorf("UNKNOWN_PLATFORM", "Platform %q is not available", ErrUnknownPlatform, platformID)
	}
	return c.Compose(entry.ID, entry.DestinationURL)
}

func isAbsoluteURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}
