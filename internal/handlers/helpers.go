package handlers

import (
	"net/url"
	"strconv"

	"github.com/bench-hub/bench-hub/internal/executioncontext"
	"github.com/bench-hub/bench-hub/internal/http_wrappers"
	"github.com/bench-hub/bench-hub/internal/messages"
	"github.com/bench-hub/bench-hub/internal/serviceerrors"
	"github.com/bench-hub/bench-hub/pkg/api"
)

const DefaultPageLimit = 50

// PageParams reads offset and limit from the query string, falling back to
// the defaults when absent.
func PageParams(r http_wrappers.RequestWrapper) (offset int, limit int, err error) {
	offset, err = queryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	limit, err = queryInt(r, "limit", DefaultPageLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit, nil
}

func queryInt(r http_wrappers.RequestWrapper, name string, fallback int) (int, error) {
	values := r.Query(name)
	if len(values) == 0 || values[0] == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(values[0])
	if err != nil {
		return 0, serviceerrors.NewServiceError(messages.QueryParameterInvalid,
			"ParameterName", name, "Type", "integer", "Value", values[0])
	}
	return parsed, nil
}

func CreatePage(total int, offset int, limit int, ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper) (*api.Page, error) {
	hasNext := offset+limit < total
	var nextHref *api.HRef
	if hasNext {
		href, err := url.Parse(r.URI())
		if err != nil {
			ctx.Logger.Error("Failed to parse request URI", "uri", r.URI(), "error", err)
			return nil, serviceerrors.NewServiceError(messages.InternalServerError, "Error", err.Error())
		}
		q := href.Query()
		if !q.Has("offset") {
			q.Add("offset", strconv.Itoa(offset+limit))
		} else {
			q.Set("offset", strconv.Itoa(offset+limit))
		}
		href.RawQuery = q.Encode()
		nextHref = &api.HRef{Href: href.String()}
	}

	return &api.Page{
		First:      &api.HRef{Href: r.URI()},
		Next:       nextHref,
		Limit:      limit,
		TotalCount: total,
	}, nil
}
