package depot

import (
	"errors"

	"github.com/freight-pulse/freight-pulse/pkg/errlvl"
)

// depotError is a service-level error type.
type depotError error

var (
	errFailedConnection   depotError = errors.New("failed to connect to database")
	errFailedMigration    depotError = errors.New("failed to migrate schema")
	errArticleValidation  depotError = errors.New("article validation failed")
	errArticleUpsert      depotError = errors.New("article upsert failed")
	errTitleEmpty         depotError = errors.New("title is empty")
	errURLEmpty           depotError = errors.New("url is empty")
	errURLTooLong         depotError = errors.New("url is too long")
	errImportanceRange    depotError = errors.New("importance must be between 1 and 5")
	errUnknownDailyField  depotError = errors.New("unknown daily metric field")
	errUnknownMacroField  depotError = errors.New("unknown macro metric field")
	errDailyFieldUpsert   depotError = errors.New("daily metric field upsert failed")
	errMacroFieldUpsert   depotError = errors.New("macro metric field upsert failed")
	errDieselUpsert       depotError = errors.New("diesel price upsert failed")
	errLaneLookup         depotError = errors.New("lane lookup failed")
	errLaneCreation       depotError = errors.New("lane creation failed")
	errLaneRankUpdate     depotError = errors.New("lane rank update failed")
	errRateLookup         depotError = errors.New("rate lookup failed")
	errRateCreation       depotError = errors.New("rate creation failed")
	errRunCreation        depotError = errors.New("scraper run creation failed")
	errRunCompletion      depotError = errors.New("scraper run completion failed")
	errRunStatsEncoding   depotError = errors.New("scraper run stats encoding failed")
	errDateEmpty          depotError = errors.New("date is empty")
	errRegionCodeEmpty    depotError = errors.New("region code is empty")
	errLaneIdentityEmpty  depotError = errors.New("lane origin and destination are required")
	errRateLaneMissing    depotError = errors.New("rate requires a lane reference")
	errScraperNameMissing depotError = errors.New("scraper name is required")
)

// newError wraps a generic service error, optionally joined with the
// underlying cause, and tags it with a severity for the final report.
func newError(genericErr depotError, err error) error {
	return newErrorLvl(errlvl.ERROR, genericErr, err)
}

func newErrorLvl(lvl errlvl.Lvl, genericErr depotError, err error) error {
	if err != nil {
		return errlvl.Wrap(errors.Join(genericErr, err), lvl)
	}
	return errlvl.Wrap(genericErr, lvl)
}
