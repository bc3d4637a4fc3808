/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Jan 16 14:37:40 2018 mstenber
 * Last modified: Mon Mar 26 16:40:12 2018 mstenber
 * Edit time:     9 min
 *
 */

package util

import (
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/fingon/go-zxtree/mlog"
)

// SeedEnv names the environment variable that pins GetSeededRng.
const SeedEnv = "ZXTREE_SEED"

// GetSeededRng returns a random source for randomized tests. The
// seed is logged so that a failing run can be repeated.
func GetSeededRng() *rand.Rand {
	seedvalue := time.Now().UnixNano()
	if seed := os.Getenv(SeedEnv); seed != "" {
		v, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			log.Panic(err)
		}
		seedvalue = v
	}
	log.Printf("Seed: %v (use %s= to fix)", seedvalue, SeedEnv)
	mlog.Printf2("util/random", "GetSeededRng %v", seedvalue)
	return rand.New(rand.NewSource(seedvalue))
}
