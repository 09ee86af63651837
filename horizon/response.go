// Copyright 2025 Lumenaut Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package horizon

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// sideloadableKinds is the allow-list of relation names whose inline values
// short-circuit the network when requested via join
var sideloadableKinds = map[string]bool{
	"transaction": true,
}

// Response is either a single Record or a Page of records, depending on
// whether the raw document carried an embedded record collection
type Response interface {
	isResponse()
}

// Relation describes a link from a record to a related resource. When the
// related resource was embedded via join, Embedded holds the inline copy
// and resolving the relation performs no network request
type Relation struct {
	Href      string
	Templated bool
	Embedded  any
}

// Record is a single normalized response document. Relation links from the
// raw document are lifted out of the fields into Links
type Record struct {
	Fields map[string]any
	Links  map[string]Relation
}

func (r *Record) isResponse() {}

// GetString returns a string-valued field
func (r *Record) GetString(key string) (string, bool) {
	value, ok := r.Fields[key].(string)
	return value, ok
}

// PagingToken returns the record's pagination token, or an empty string if
// it has none
func (r *Record) PagingToken() string {
	token, _ := r.GetString("paging_token")
	return token
}

// Page is an ordered collection of records plus pagination links. Paging is
// not memoized: every NextPage/PrevPage call issues a fresh request against
// the href carried by this page
type Page struct {
	client   *Client
	Records  []*Record
	NextHref string
	PrevHref string
}

func (p *Page) isResponse() {}

// NextPage fetches and normalizes the following page
func (p *Page) NextPage(ctx context.Context) (*Page, error) {
	return p.follow(ctx, p.NextHref)
}

// PrevPage fetches and normalizes the preceding page
func (p *Page) PrevPage(ctx context.Context) (*Page, error) {
	return p.follow(ctx, p.PrevHref)
}

func (p *Page) follow(ctx context.Context, href string) (*Page, error) {
	if href == "" {
		return nil, errors.New("page has no link in that direction")
	}
	raw, err := p.client.getJSON(ctx, href)
	if err != nil {
		return nil, err
	}
	resp := normalizeResponse(p.client, raw)
	page, ok := resp.(*Page)
	if !ok {
		return nil, fmt.Errorf("expected a record collection from %s", href)
	}
	return page, nil
}

// Resolve follows a relation. If the related resource was already embedded
// via join, the inline copy is normalized and returned without a network
// round trip; otherwise one GET is issued against the relation's href,
// expanding URI templates with the provided parameters
func (c *Client) Resolve(
	ctx context.Context,
	relation Relation,
	params map[string]string,
) (Response, error) {
	if relation.Embedded != nil {
		embedded, ok := relation.Embedded.(map[string]any)
		if !ok {
			return nil, fmt.Errorf(
				"embedded relation is not a document: %T",
				relation.Embedded,
			)
		}
		return normalizeResponse(c, embedded), nil
	}
	href := relation.Href
	if relation.Templated {
		href = expandTemplate(href, params)
	}
	raw, err := c.getJSON(ctx, href)
	if err != nil {
		return nil, err
	}
	return normalizeResponse(c, raw), nil
}

// normalizeResponse converts a raw JSON document into a Page when it
// carries an embedded record collection, and a Record otherwise
func normalizeResponse(c *Client, raw map[string]any) Response {
	embedded, ok := raw["_embedded"].(map[string]any)
	if ok {
		rawRecords, ok := embedded["records"].([]any)
		if ok {
			page := &Page{client: c}
			for _, rawRecord := range rawRecords {
				recordDoc, ok := rawRecord.(map[string]any)
				if !ok {
					continue
				}
				page.Records = append(page.Records, normalizeRecord(recordDoc))
			}
			page.NextHref = rawLinkHref(raw, "next")
			page.PrevHref = rawLinkHref(raw, "prev")
			return page
		}
	}
	return normalizeRecord(raw)
}

// normalizeRecord lifts every _links entry into a Relation. If a link's
// target key already holds an inline value and that key is a side-loadable
// resource kind, the inline value is preserved under a renamed key and
// attached to the relation so resolution short-circuits the network for
// that one relation only
func normalizeRecord(raw map[string]any) *Record {
	record := &Record{
		Fields: map[string]any{},
		Links:  map[string]Relation{},
	}
	rawLinks, _ := raw["_links"].(map[string]any)
	for key, value := range raw {
		if key == "_links" {
			continue
		}
		record.Fields[key] = value
	}
	for name, rawLink := range rawLinks {
		linkDoc, ok := rawLink.(map[string]any)
		if !ok {
			continue
		}
		relation := Relation{}
		relation.Href, _ = linkDoc["href"].(string)
		relation.Templated, _ = linkDoc["templated"].(bool)
		if inline, ok := raw[name]; ok && sideloadableKinds[name] {
			relation.Embedded = inline
			record.Fields[name+"_attr"] = inline
			delete(record.Fields, name)
		}
		record.Links[name] = relation
	}
	return record
}

func rawLinkHref(raw map[string]any, name string) string {
	rawLinks, ok := raw["_links"].(map[string]any)
	if !ok {
		return ""
	}
	linkDoc, ok := rawLinks[name].(map[string]any)
	if !ok {
		return ""
	}
	href, _ := linkDoc["href"].(string)
	return href
}

var templateExprRegexp = regexp.MustCompile(`\{(\??)([^}]*)\}`)

// expandTemplate performs the URI template expansion needed for templated
// relation links: simple {var} substitution and {?a,b} query expansion.
// Variables without a provided value expand to nothing
func expandTemplate(template string, params map[string]string) string {
	return templateExprRegexp.ReplaceAllStringFunc(
		template,
		func(match string) string {
			groups := templateExprRegexp.FindStringSubmatch(match)
			names := strings.Split(groups[2], ",")
			if groups[1] == "?" {
				query := url.Values{}
				for _, name := range names {
					if value, ok := params[name]; ok {
						query.Set(name, value)
					}
				}
				if len(query) == 0 {
					return ""
				}
				return "?" + query.Encode()
			}
			var parts []string
			for _, name := range names {
				if value, ok := params[name]; ok {
					parts = append(parts, url.PathEscape(value))
				}
			}
			return strings.Join(parts, ",")
		},
	)
}
