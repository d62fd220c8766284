package worktreestore

const schema = `
CREATE TABLE IF NOT EXISTS worktrees (
    project_path TEXT NOT NULL,
    branch TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    init_script_ran BOOLEAN NOT NULL DEFAULT FALSE,
    init_script_status TEXT NOT NULL DEFAULT '',
    init_script_error TEXT,
    pr TEXT,
    updated_at TIMESTAMP,
    PRIMARY KEY (project_path, branch)
);

CREATE INDEX IF NOT EXISTS idx_worktrees_project ON worktrees(project_path);
CREATE INDEX IF NOT EXISTS idx_worktrees_status ON worktrees(init_script_status);
`
