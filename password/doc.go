// Package password provides argon2id hashing for the bundled Redis-backed
// identity provider. The synchronizer itself never touches credentials at
// rest; only redisstore imports this package.
package password
