// Package daystatus stores the daily operating status of a sports school.
//
// Each calendar day has at most one [Record]: a global [Status] with an
// optional message, plus a status and message per configured [Course]. Days
// without a record are reported as scheduled. Records are persisted as a
// single JSON document on a [Substrate], upgraded from older layouts when
// loaded, and removed once they fall out of the retention window.
//
// # Quick Start
//
//	store, err := daystatus.New()
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.Init(ctx); err != nil {
//	    return err
//	}
//
//	res := store.Save(ctx, daystatus.RecordInput{
//	    GlobalStatus: daystatus.StatusIndoor,
//	    Courses: map[string]daystatus.CourseInput{
//	        "kids": {Status: daystatus.StatusCancelled, Message: "Hall too small"},
//	    },
//	}, "")
//	if !res.Success {
//	    log.Println(res.Errors)
//	}
//
//	today := store.GetByDate(store.Today())
//
// # Storage
//
// The built-in substrates are:
//
//   - [MemoryStorage]: process-local, shared between tabs from its Tab method
//   - [FileStorage]: one JSON file per key, polled for changes
//   - [BoltStorage]: a bbolt database file
//   - [RedisStorage]: Redis strings with pub/sub change announcements
//
// When several stores share one substrate that implements [Notifier], each
// follows the others' writes. The last whole-document write wins; there is
// no field-level merge.
//
// # Events
//
// Every change is published as an [Event], both to channels from
// [Store.Subscribe] and to callbacks registered with [WithEventCallback].
//
// # Architecture
//
// The internal packages are:
//
//   - internal/substrate: key-value storage backends
//   - internal/persist: the document layout on a substrate
//   - internal/tabsync: adopting writes made by other instances
//   - internal/sweeper: the periodic expiry sweep
//   - internal/events: non-blocking pub/sub
//   - internal/server: HTTP API, dashboard and Server-Sent Events
//   - internal/export: iCalendar and spreadsheet exports
package daystatus
