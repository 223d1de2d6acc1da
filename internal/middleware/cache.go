package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/event-checkin/internal/config"
)

// ResponseCache keeps successful public read responses in Redis.  Entries
// are keyed by a generation counter that every write to events or tickets
// bumps through Purge.  A read that started before the write may still
// store its response, but under the old generation, where nothing looks
// it up again.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log *zap.Logger
}

// NewResponseCache returns a cache; with rdb nil or caching disabled its
// middleware passes through and Purge is a no-op.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) *ResponseCache {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enabled {
		rdb = nil
	}
	return &ResponseCache{cfg: cfg, rdb: rdb, log: log}
}

// Middleware serves cached responses and stores 200s on miss.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if rc.rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rc.cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			gen, err := rc.generation(ctx)
			if err != nil {
				rc.log.Warn("cache generation read failed", zap.Error(err))
				return next(c)
			}
			key := rc.key(c, gen)

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(rc.cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := rc.rdb.SetEx(context.WithoutCancel(ctx), key, payload, rc.cfg.TTL).Err(); err != nil {
				rc.log.Warn("cache store failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}

// Purge bumps the generation, then drops the stored responses.
func (rc *ResponseCache) Purge(ctx context.Context) {
	if rc == nil || rc.rdb == nil {
		return
	}
	if err := rc.rdb.Incr(ctx, rc.genKey()).Err(); err != nil {
		rc.log.Warn("cache generation bump failed", zap.Error(err))
	}
	iter := rc.rdb.Scan(ctx, 0, rc.cfg.Prefix+":r:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		rc.log.Warn("cache purge scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := rc.rdb.Del(ctx, keys...).Err(); err != nil {
		rc.log.Warn("cache purge failed", zap.Error(err))
	}
}

// PurgeOnWrite purges the cache after a successful non-GET request.
func (rc *ResponseCache) PurgeOnWrite() echo.MiddlewareFunc {
	if rc.rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			m := c.Request().Method
			if m != http.MethodGet && m != http.MethodHead && err == nil && c.Response().Status < 400 {
				rc.Purge(context.WithoutCancel(c.Request().Context()))
			}
			return err
		}
	}
}

func (rc *ResponseCache) genKey() string { return rc.cfg.Prefix + ":gen" }

// generation returns the current cache generation; 0 before the first write.
func (rc *ResponseCache) generation(ctx context.Context) (int64, error) {
	n, err := rc.rdb.Get(ctx, rc.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (rc *ResponseCache) key(c echo.Context, gen int64) string {
	r := c.Request()
	sum := sha1.Sum([]byte(r.Method + ":" + c.Path() + ":" + r.URL.Path + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s:r:%d:%x", rc.cfg.Prefix, gen, sum[:])
}

// captureWriter tees the response body up to limit bytes.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.truncated {
		if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
			cw.truncated = true
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = http.Header{}
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}
