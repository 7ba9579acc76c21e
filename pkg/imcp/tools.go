package imcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func listJobsTool() mcp.Tool {
	return mcp.NewTool(
		"list_jobs",
		mcp.WithDescription("List all jobs of the Jenkins root view with their URL and whether they are buildable."),
		mcp.WithTitleAnnotation("List Jenkins jobs"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

func triggerBuildTool() mcp.Tool {
	return mcp.NewTool(
		"trigger_build",
		mcp.WithDescription("Queue a build of a Jenkins job, optionally with build parameters. Returns the queue location."),
		mcp.WithTitleAnnotation("Trigger Jenkins build"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithString(
			"job_name",
			mcp.Required(),
			mcp.Description(`Name of the job, use "folder/job" for jobs inside folders.`),
		),
		mcp.WithObject(
			"parameters",
			mcp.Description("Build parameters as name to value pairs."),
			mcp.AdditionalProperties(map[string]any{
				"type": []string{"string", "number", "boolean"},
			}),
		),
	)
}

func buildStatusTool() mcp.Tool {
	return mcp.NewTool(
		"get_build_status",
		mcp.WithDescription("Get number, result and building state of a build. A null result means the build is still running."),
		mcp.WithTitleAnnotation("Get Jenkins build status"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString(
			"job_name",
			mcp.Required(),
			mcp.Description(`Name of the job, use "folder/job" for jobs inside folders.`),
		),
		mcp.WithString(
			"build_number",
			mcp.Description("Build number or a permalink like lastSuccessfulBuild."),
			mcp.DefaultString("lastBuild"),
		),
	)
}

func queueItemTool() mcp.Tool {
	return mcp.NewTool(
		"get_queue_item",
		mcp.WithDescription("Resolve a queue item returned by trigger_build, reports why it waits or which build it started."),
		mcp.WithTitleAnnotation("Get Jenkins queue item"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithNumber(
			"queue_id",
			mcp.Required(),
			mcp.Description("Queue id as returned by trigger_build."),
			mcp.Min(1),
		),
	)
}

func recentTriggersTool() mcp.Tool {
	return mcp.NewTool(
		"list_recent_triggers",
		mcp.WithDescription("List builds recently triggered through this server, newest first, including failed attempts."),
		mcp.WithTitleAnnotation("List recent triggers"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString(
			"job_name",
			mcp.Description("Only list triggers of this job."),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description("Maximum number of entries."),
			mcp.DefaultNumber(20),
			mcp.Min(1),
			mcp.Max(200),
		),
	)
}
