/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 20 09:01:17 2018 mstenber
 * Last modified: Tue Mar 20 09:11:02 2018 mstenber
 * Edit time:     9 min
 *
 */

package mlog

// FacilityLogger satisfies the leveled logger interface badger wants
// (Errorf/Warningf/Infof/Debugf) and forwards everything to Printf2
// under one facility. Errors are always printed.
type FacilityLogger struct {
	Facility string
}

func (self FacilityLogger) Errorf(format string, args ...interface{}) {
	logger.Printf("E "+self.Facility+": "+format, args...)
}

func (self FacilityLogger) Warningf(format string, args ...interface{}) {
	Printf2(self.Facility, "W "+format, args...)
}

func (self FacilityLogger) Infof(format string, args ...interface{}) {
	Printf2(self.Facility, "I "+format, args...)
}

func (self FacilityLogger) Debugf(format string, args ...interface{}) {
	Printf2(self.Facility, "D "+format, args...)
}
