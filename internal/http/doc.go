// Package httpapp provides the HTTP server for Questly.
//
//	@title						Questly API
//	@version					1.0
//	@description				REST backend for a social feed with friends, likes, comments and challenges.
//	@description
//	@description				## Authentication
//	@description
//	@description				Every route except registration, login, health and metrics needs a bearer token.
//	@description				```bash
//	@description				curl -X POST /auth/register -d '{"firstName":"Ada","email":"ada@example.com","password":"secret1"}'
//	@description				curl -X POST /auth/login -d '{"email":"ada@example.com","password":"secret1"}'
//	@description				# Returns: {"token": "TOKEN", "expiresAt": "...", "user": {...}}
//	@description				curl /posts -H "Authorization: Bearer TOKEN"
//	@description				```
//	@description
//	@description				## Uploads
//	@description				Post, registration and profile endpoints accept multipart/form-data with a single
//	@description				image in the `picture` field. Files above 5MB are rejected with 413.
//
//	@contact.name				Questly
//	@license.name				MIT
//
//	@host						localhost:3001
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token from the /auth/login endpoint
//
//	@tag.name					Auth
//	@tag.description			Account registration and login.
//
//	@tag.name					Posts
//	@tag.description			Feed, likes, comments, bookmarks and image URL repair.
//
//	@tag.name					Users
//	@tag.description			Profiles, friendships and search.
//
//	@tag.name					Challenges
//	@tag.description			Custom and public challenges with per-user progress.
//
//	@tag.name					System
//	@tag.description			Health and diagnostics.
package httpapp
