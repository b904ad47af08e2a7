// Package httpapi exposes the engine over HTTP.
//
//	POST /api/auth/login     {email,password}         200 TokenSet, sets refreshToken cookie
//	POST /api/auth/reissue   refreshToken cookie      200 TokenSet, replaces the cookie
//	POST /api/auth/logout    Authorization: Bearer    200, expires the cookie
//	POST /api/auth/register  {email,password,...}     201
//	GET  /api/me             authenticated principal
//	GET  /api/admin/ping     ROLE_ADMIN only
//	GET  /healthz            session store ping
//	GET  /metrics            when Options.Metrics is set
//
// Routes under /api/auth share a per-IP token bucket.
package httpapi
