// Package download runs the hierarchical download pipeline.
//
// # Driver
//
// The Driver takes a batch of subjects and, for each one:
//
//  1. Creates the subject folder under the download root
//  2. Lists the subject's resource groups (Revision Notes, Exam Questions)
//  3. Asks the Budgeter for fresh concurrency caps before every group
//  4. Walks the group tree and downloads every leaf PDF
//  5. Drains the failure queue and reports leaves that never succeeded
//
// # Basic Usage
//
//	obs := download.ObserverFuncs{Log: func(ev download.LogEvent) {
//	    fmt.Println(ev.Message)
//	}}
//	driver := download.NewDriver(locator, fetcher, advisor, afero.NewOsFs(), obs,
//	    download.DefaultOptions("/downloads"))
//
//	summary, err := driver.Run(ctx, jobs)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// Every tree level runs on its own bounded pool:
//   - SubjectConcurrency: subjects processed in parallel
//   - SectionLimit: sections and sub-sections expanded in parallel
//   - DownloadLimit: leaf files transferred in parallel
//
// Nested work always goes to the next level's pool, so a task never waits
// for a slot held by its own parent.
//
// # Progress Tracking
//
// Progress reaches the caller through an Observer. LogEvent carries a LineID
// so repeated updates about one file can be rendered in place, and every leaf
// gets exactly one line with Terminal set.
//
// # Retry Logic
//
// A leaf is retried with exponential backoff (see package retry). When the
// retries run out it goes onto the subject's FailureQueue, which is drained
// after the group traversal for a bounded number of passes.
package download
